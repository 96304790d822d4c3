package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"chat-gateway/errors"
	"chat-gateway/services"
)

// AccountHandler is the plain HTTP surface for provisioning credentials.
// Clients call Register or Login once, then present the returned token on
// the WebSocket handshake.
type AccountHandler struct {
	log         *slog.Logger
	authService services.IAuthService
}

func NewAccountHandler(log *slog.Logger, authService services.IAuthService) *AccountHandler {
	return &AccountHandler{log: log, authService: authService}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register validates input, hashes the password and issues a token.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST only"})
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}

	token, err := h.authService.Register(req.Username, req.Email, req.Password)
	if err != nil {
		h.log.Warn("Registration rejected", "email", req.Email, "err", err)
		writeJSON(w, errors.MapToHTTPStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: string(token)})
}

// Login verifies credentials and returns a session token.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST only"})
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		writeJSON(w, errors.MapToHTTPStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: string(token)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
