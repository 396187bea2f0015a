// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mbaxter/vitals/internal/chat"
	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/models"
)

// maxChatHistory bounds how much conversation a single relay request may
// carry upstream.
const maxChatHistory = 20

// chatRequest is the portfolio chatbot request body. History is optional and
// ordered oldest-first.
type chatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history,omitempty"`
}

// chatResponse carries the assistant's reply.
type chatResponse struct {
	Reply string `json:"reply"`
}

// handleChat relays a chatbot conversation to the configured LLM provider.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chatRelay == nil || !s.chatRelay.Configured() {
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeConfiguration, "chat relay is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "message is required")
		return
	}
	if len(req.History) > maxChatHistory {
		req.History = req.History[len(req.History)-maxChatHistory:]
	}

	messages := append(req.History, chat.Message{Role: "user", Content: req.Message})

	reply, err := s.chatRelay.Complete(r.Context(), messages)
	if err != nil {
		var relayErr *chat.RelayError
		if errors.As(err, &relayErr) {
			logging.Warn().Int("status", relayErr.StatusCode).Msg("Chat relay upstream error")
			respondError(w, r, http.StatusBadGateway, models.ErrCodeUpstream, relayErr.Error())
			return
		}
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
		return
	}

	respondSuccess(w, r, http.StatusOK, chatResponse{Reply: reply})
}
