package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goldsmith-supplies/internal/domain"
	"goldsmith-supplies/internal/repository"
	"goldsmith-supplies/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUserService struct {
	signup      func(ctx context.Context, name, email, password string) (*domain.User, string, error)
	login       func(ctx context.Context, email, password string) (*domain.User, string, error)
	getUserByID func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

func (m *mockUserService) Signup(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	return m.signup(ctx, name, email, password)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	return m.login(ctx, email, password)
}

func (m *mockUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return m.getUserByID(ctx, userID)
}

func newUserRouter(svc service.UserService, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	handler := NewUserHandler(svc, zap.NewNop())
	handler.RegisterRoutes(r, nil, authMiddleware)
	return r
}

func TestUserHandlerSignup(t *testing.T) {
	userID := uuid.New()
	svc := &mockUserService{
		signup: func(ctx context.Context, name, email, password string) (*domain.User, string, error) {
			return &domain.User{
				ID:           userID,
				Name:         name,
				Email:        email,
				PasswordHash: "$2a$10$secret",
				Role:         domain.RoleCustomer,
			}, "signed-token", nil
		},
	}
	router := newUserRouter(svc, passThrough)

	body := map[string]string{
		"name":     "Fatima H",
		"email":    "fatima@example.com",
		"password": "correct-horse",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/users/signup", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, userID.String(), resp.User.ID)
	assert.Equal(t, "customer", resp.User.Role)

	// The password hash must never appear in the response.
	assert.NotContains(t, w.Body.String(), "secret")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestUserHandlerSignupDuplicateEmail(t *testing.T) {
	svc := &mockUserService{
		signup: func(ctx context.Context, name, email, password string) (*domain.User, string, error) {
			return nil, "", repository.ErrUserAlreadyExists
		},
	}
	router := newUserRouter(svc, passThrough)

	body := map[string]string{
		"name":     "Fatima H",
		"email":    "fatima@example.com",
		"password": "correct-horse",
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/users/signup", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandlerSignupValidation(t *testing.T) {
	svc := &mockUserService{}
	router := newUserRouter(svc, passThrough)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.com", "password": "longenough"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "longenough"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.com", "password": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqBody, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/api/users/signup", bytes.NewReader(reqBody))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUserHandlerLogin(t *testing.T) {
	userID := uuid.New()
	svc := &mockUserService{
		login: func(ctx context.Context, email, password string) (*domain.User, string, error) {
			if password != "correct-horse" {
				return nil, "", service.ErrInvalidCredentials
			}
			return &domain.User{ID: userID, Email: email, Role: domain.RoleCustomer}, "signed-token", nil
		},
	}
	router := newUserRouter(svc, passThrough)

	t.Run("valid credentials", func(t *testing.T) {
		reqBody, _ := json.Marshal(map[string]string{"email": "fatima@example.com", "password": "correct-horse"})
		req := httptest.NewRequest("POST", "/api/users/login", bytes.NewReader(reqBody))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "signed-token", resp.Token)
		assert.Equal(t, userID.String(), resp.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		reqBody, _ := json.Marshal(map[string]string{"email": "fatima@example.com", "password": "wrong"})
		req := httptest.NewRequest("POST", "/api/users/login", bytes.NewReader(reqBody))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUserHandlerGetProfile(t *testing.T) {
	userID := uuid.New()
	var requestedID uuid.UUID
	svc := &mockUserService{
		getUserByID: func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
			requestedID = id
			return &domain.User{
				ID:           id,
				Name:         "Fatima H",
				Email:        "fatima@example.com",
				PasswordHash: "$2a$10$secret",
				Role:         domain.RoleCustomer,
			}, nil
		},
	}
	router := newUserRouter(svc, authAs(userID, "customer"))

	req := httptest.NewRequest("GET", "/api/users/profile", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, userID, requestedID)

	var profile UserProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, userID.String(), profile.ID)
	assert.Equal(t, "Fatima H", profile.Name)
	assert.Equal(t, "fatima@example.com", profile.Email)
	assert.Equal(t, "customer", profile.Role)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestUserHandlerGetProfileUnauthenticated(t *testing.T) {
	svc := &mockUserService{}
	router := newUserRouter(svc, passThrough)

	req := httptest.NewRequest("GET", "/api/users/profile", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandlerGetProfileNotFound(t *testing.T) {
	svc := &mockUserService{
		getUserByID: func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
			return nil, repository.ErrUserNotFound
		},
	}
	router := newUserRouter(svc, authAs(uuid.New(), "customer"))

	req := httptest.NewRequest("GET", "/api/users/profile", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
