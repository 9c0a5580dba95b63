package web

// errors.go turns handler errors into responses.
//
// Every error goes through core.MapError, so the client gets the message,
// action and code while the technical error is only logged. The HTTP status
// follows from the code. API routes answer in JSON, pages with an HTML
// error page.

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/logging"
	"github.com/JonMunkholm/apcclean/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the user-facing version of it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusForCode(userMsg.Code)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, status)
		return
	}
	respondErrorHTML(w, r, userMsg, status)
}

// statusForCode maps a UserMessage code to an HTTP status.
func statusForCode(code string) int {
	switch {
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case code == "VAL002" || code == "VAL005":
		return http.StatusUnprocessableEntity
	case code == "JOB001":
		return http.StatusServiceUnavailable
	case code == "UPL005":
		return http.StatusGatewayTimeout
	case code == "DB004":
		return http.StatusBadGateway
	case strings.HasPrefix(code, "FILE"),
		strings.HasPrefix(code, "CLN"),
		strings.HasPrefix(code, "EXP"),
		code == "UPL004":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML writes the error page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
