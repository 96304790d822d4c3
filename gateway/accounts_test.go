package gateway

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-gateway/auth"
	"chat-gateway/repositories"
	"chat-gateway/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newAccountServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	authService := services.NewAuthService(repositories.NewUserRepository(db), time.Hour)
	handler := NewAccountHandler(slog.Default(), authService)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", handler.Register)
	mux.HandleFunc("/auth/login", handler.Login)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAccountHandler_RegisterAndLogin(t *testing.T) {
	req := require.New(t)
	server := newAccountServer(t)

	register := map[string]string{
		"username": "alice42",
		"email":    "alice@example.com",
		"password": "ComplexPass123!",
	}

	// Registration issues a usable token
	resp := postJSON(t, server.URL+"/auth/register", register)
	req.Equal(http.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.NotEmpty(body.Token)

	claims, err := auth.ValidateToken(body.Token)
	req.NoError(err)
	req.Equal("alice42", claims.Username)

	// The email is now taken
	resp = postJSON(t, server.URL+"/auth/register", register)
	req.Equal(http.StatusConflict, resp.StatusCode)

	// Login with the right password succeeds
	resp = postJSON(t, server.URL+"/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "ComplexPass123!",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.NotEmpty(body.Token)

	// Wrong password is a generic unauthorized
	resp = postJSON(t, server.URL+"/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass123!",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAccountHandler_Rejections(t *testing.T) {
	req := require.New(t)
	server := newAccountServer(t)

	// Weak passwords never reach the store
	resp := postJSON(t, server.URL+"/auth/register", map[string]string{
		"username": "alice42",
		"email":    "alice@example.com",
		"password": "weak",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	// Malformed body
	raw, err := http.Post(server.URL+"/auth/register", "application/json",
		bytes.NewReader([]byte("{broken")))
	req.NoError(err)
	defer raw.Body.Close()
	req.Equal(http.StatusBadRequest, raw.StatusCode)

	// Wrong method
	get, err := http.Get(server.URL + "/auth/login")
	req.NoError(err)
	defer get.Body.Close()
	req.Equal(http.StatusMethodNotAllowed, get.StatusCode)
}
