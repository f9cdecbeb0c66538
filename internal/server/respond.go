package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"cityops/internal/chat"
	"cityops/internal/scenario"
	"cityops/internal/session"
	"cityops/internal/wizard"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, errorBody{Error: code, Message: message, Details: details})
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", map[string]any{"error": err.Error()})
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		writeError(w, http.StatusBadRequest, "validation_failed", "request body failed validation", details)
		return false
	}
	return true
}

// writeDomainError maps package errors onto HTTP responses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var fe *wizard.FieldError
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error(), nil)
	case errors.Is(err, scenario.ErrUnknownScenario):
		writeError(w, http.StatusNotFound, "scenario_not_found", err.Error(), nil)
	case errors.Is(err, chat.ErrUnknownArea):
		writeError(w, http.StatusNotFound, "chat_area_not_found", err.Error(), nil)
	case errors.Is(err, chat.ErrUnknownSection), errors.Is(err, wizard.ErrUnknownStep):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.As(err, &fe):
		details := make(map[string]any, len(fe.Fields))
		for k, v := range fe.Fields {
			details[k] = v
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid_fields", fmt.Sprintf("step %s has invalid fields", fe.Step), details)
	case errors.Is(err, wizard.ErrNotCurrent), errors.Is(err, wizard.ErrNoSubmit),
		errors.Is(err, wizard.ErrAtStart), errors.Is(err, wizard.ErrPublished):
		writeError(w, http.StatusConflict, "wizard_conflict", err.Error(), nil)
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}
