// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mbaxter/vitals/internal/logging"
)

// Handler upgrades HTTP requests to websocket connections and attaches them
// to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the upgrade handler. allowedOrigins uses the same values
// as the CORS configuration; "*" admits any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				// Same-origin requests (no Origin header) are allowed.
				return origin == "" || origins[origin]
			},
		},
	}
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	NewClient(h.hub, conn).Start()
}
