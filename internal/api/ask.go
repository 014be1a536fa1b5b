package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calmcare/calm-agent/internal/agent"
	"github.com/calmcare/calm-agent/internal/config"
	"github.com/calmcare/calm-agent/internal/security"
)

// maxAskBodyBytes bounds the request body; questions plus a short chat
// window fit comfortably.
const maxAskBodyBytes = 1 << 20

// askRequest is the consultation request body. Omitted tuning fields
// fall back to the server's configured defaults.
type askRequest struct {
	UserQuery   string        `json:"user_query"`
	DocNumber   *int          `json:"doc_number,omitempty"`
	Threshold   *float64      `json:"threshold,omitempty"`
	MaxRetries  *int          `json:"max_retries,omitempty"`
	ChatSession []chatMessage `json:"chat_session,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskDefaults are the tuning values applied when a request omits
// them.
type AskDefaults struct {
	Threshold  float64
	MaxRetries int
	DocNumber  int
}

// Runner answers one consultation request. *agent.Engine is the
// production implementation.
type Runner interface {
	Run(ctx context.Context, in agent.Input) (agent.Generation, error)
}

type askHandler struct {
	runner    Runner
	defaults  AskDefaults
	validator *security.PromptValidator
	logger    *slog.Logger
}

func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", h.logger)
		return
	}

	in, err := h.buildInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	if !h.validator.IsSafe(in.Question) {
		h.logger.Warn("rejected suspicious question",
			"request_id", requestIDFromContext(r.Context()))
		writeError(w, http.StatusBadRequest, "invalid_request",
			"user_query contains disallowed content", h.logger)
		return
	}

	gen, err := h.runner.Run(r.Context(), in)
	if err != nil {
		h.logger.Error("agent run failed",
			"error", err,
			"request_id", requestIDFromContext(r.Context()))
		writeError(w, http.StatusBadGateway, errorCode(err),
			"I'm sorry, something went wrong while preparing your answer. Please try again.", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, gen, h.logger)
}

// buildInput validates the request and fills defaults. Bounds match
// the documented API contract: doc_number 1-10, threshold 0-1,
// max_retries 1-5.
func (h *askHandler) buildInput(req askRequest) (agent.Input, error) {
	question := strings.TrimSpace(req.UserQuery)
	if question == "" {
		return agent.Input{}, errors.New("user_query must not be empty")
	}

	in := agent.Input{
		Question:   question,
		Threshold:  h.defaults.Threshold,
		MaxRetries: h.defaults.MaxRetries,
		DocNumber:  h.defaults.DocNumber,
	}

	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			return agent.Input{}, fmt.Errorf("threshold %v out of range [0, 1]", *req.Threshold)
		}
		in.Threshold = *req.Threshold
	}
	if req.MaxRetries != nil {
		if *req.MaxRetries < config.MinMaxRetries || *req.MaxRetries > config.MaxMaxRetries {
			return agent.Input{}, fmt.Errorf("max_retries %d out of range [%d, %d]",
				*req.MaxRetries, config.MinMaxRetries, config.MaxMaxRetries)
		}
		in.MaxRetries = *req.MaxRetries
	}
	if req.DocNumber != nil {
		if *req.DocNumber < config.MinDocNumber || *req.DocNumber > config.MaxDocNumber {
			return agent.Input{}, fmt.Errorf("doc_number %d out of range [%d, %d]",
				*req.DocNumber, config.MinDocNumber, config.MaxDocNumber)
		}
		in.DocNumber = *req.DocNumber
	}

	for _, m := range req.ChatSession {
		role := agent.Role(m.Role)
		if role != agent.RoleUser && role != agent.RoleAssistant {
			return agent.Input{}, fmt.Errorf("unsupported chat role %q", m.Role)
		}
		in.History = append(in.History, agent.Message{
			ID:        uuid.New(),
			Role:      role,
			Content:   m.Content,
			Timestamp: time.Now(),
		})
	}

	return in, nil
}

// errorCode maps the engine's fatal error classes to stable API codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, agent.ErrRouting):
		return "routing_failed"
	case errors.Is(err, agent.ErrRetrieval):
		return "retrieval_failed"
	case errors.Is(err, agent.ErrExpansion):
		return "expansion_failed"
	default:
		return "agent_failed"
	}
}
