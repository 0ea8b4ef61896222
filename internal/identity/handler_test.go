package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhub/roster/internal/domain"
	"github.com/rosterhub/roster/internal/pkg/httputil"
)

func newTestRouter(repo Repository, auth TokenAuthenticator) chi.Router {
	handler := NewHandler(NewService(repo, auth))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	handler.RegisterProtectedRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRegister_CreatesAccountWithoutToken(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	router := newTestRouter(repo, &mockAuthenticator{})

	// Act
	rec := postJSON(t, router, "/auth/register", map[string]string{
		"username": "somchai",
		"password": "password123",
	})

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "somchai", envelope.Data.Username)
	assert.Equal(t, "user", envelope.Data.Role)

	body := rec.Body.String()
	assert.NotContains(t, body, "token", "registration must not log the account in")
	assert.NotContains(t, body, "password", "hash must never be serialized")
}

func TestHandlerRegister_DuplicateUsername(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{Username: "somchai"}
	router := newTestRouter(repo, &mockAuthenticator{})

	// Act
	rec := postJSON(t, router, "/auth/register", map[string]string{
		"username": "somchai",
		"password": "password123",
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRegister_RejectsShortPassword(t *testing.T) {
	// Arrange
	router := newTestRouter(newMockRepository(), &mockAuthenticator{})

	// Act
	rec := postJSON(t, router, "/auth/register", map[string]string{
		"username": "somchai",
		"password": "short",
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation error")
}

func TestHandlerLogin_ReturnsTokenAndUser(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{
		ID:           "user-1",
		Username:     "somchai",
		PasswordHash: hashPassword(t, "password123"),
		Role:         domain.RoleUser,
	}
	router := newTestRouter(repo, &mockAuthenticator{})

	// Act
	rec := postJSON(t, router, "/auth/login", map[string]string{
		"username": "somchai",
		"password": "password123",
	})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "signed-token", envelope.Data.Token)
	assert.Equal(t, "user-1", envelope.Data.User.ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHandlerLogin_WrongPassword(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{
		Username:     "somchai",
		PasswordHash: hashPassword(t, "password123"),
		Role:         domain.RoleUser,
	}
	router := newTestRouter(repo, &mockAuthenticator{})

	// Act
	rec := postJSON(t, router, "/auth/login", map[string]string{
		"username": "somchai",
		"password": "wrong-password",
	})

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerMe_ReturnsClaims(t *testing.T) {
	// Arrange — claims injected the way the auth middleware does it
	router := newTestRouter(newMockRepository(), &mockAuthenticator{})

	claims := &domain.TokenClaims{
		UserID:   "user-1",
		Username: "somchai",
		Role:     domain.RoleAdmin,
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), httputil.ClaimsKey, claims))
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data domain.TokenClaims `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "user-1", envelope.Data.UserID)
	assert.Equal(t, domain.RoleAdmin, envelope.Data.Role)
}

func TestHandlerMe_WithoutClaims(t *testing.T) {
	// Arrange
	router := newTestRouter(newMockRepository(), &mockAuthenticator{})

	// Act
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
