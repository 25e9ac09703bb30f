package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userapp "user-management-api/internal/application"
	"user-management-api/pkg/validation"
)

// stubService lets each test script the service behavior per operation.
type stubService struct {
	listFn           func(ctx context.Context) ([]*userapp.Profile, error)
	getFn            func(ctx context.Context, id string) (*userapp.Profile, error)
	createFn         func(ctx context.Context, in userapp.CreateUserInput) (*userapp.Profile, error)
	updateFn         func(ctx context.Context, id, name, email string) (*userapp.Profile, error)
	deleteFn         func(ctx context.Context, id string) error
	changePasswordFn func(ctx context.Context, id string, in userapp.ChangePasswordInput) error
	searchFn         func(ctx context.Context, q string, size int) ([]map[string]any, error)
}

func (s *stubService) ListUsers(ctx context.Context) ([]*userapp.Profile, error) {
	return s.listFn(ctx)
}

func (s *stubService) GetUser(ctx context.Context, id string) (*userapp.Profile, error) {
	return s.getFn(ctx, id)
}

func (s *stubService) CreateUser(ctx context.Context, in userapp.CreateUserInput) (*userapp.Profile, error) {
	return s.createFn(ctx, in)
}

func (s *stubService) UpdateUser(ctx context.Context, id, name, email string) (*userapp.Profile, error) {
	return s.updateFn(ctx, id, name, email)
}

func (s *stubService) DeleteUser(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubService) ChangePassword(ctx context.Context, id string, in userapp.ChangePasswordInput) error {
	return s.changePasswordFn(ctx, id, in)
}

func (s *stubService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	return s.searchFn(ctx, q, size)
}

func newTestRouter(svc UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.Init()
	h := NewUserHandler(svc, nil)
	r := gin.New()
	api := r.Group("/api")
	api.GET("/users", h.List)
	api.POST("/users", h.Create)
	api.GET("/users/search", h.Search)
	api.GET("/users/:id", h.Get)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Delete)
	api.POST("/users/:id/password", h.ChangePassword)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestCreateUserEndpoint(t *testing.T) {
	t.Run("success never leaks the password", func(t *testing.T) {
		svc := &stubService{
			createFn: func(_ context.Context, in userapp.CreateUserInput) (*userapp.Profile, error) {
				return &userapp.Profile{ID: "u1", Name: in.Name, Email: in.Email}, nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
			"name":             "Ann",
			"email":            "ann@x.com",
			"password":         "secret1",
			"password_confirm": "secret1",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w)
		assert.True(t, e.Success)
		assert.JSONEq(t, `{"name":"Ann","email":"ann@x.com"}`, string(e.Data))
		assert.NotContains(t, w.Body.String(), "secret1")
	})

	t.Run("validation failure short-circuits before the service", func(t *testing.T) {
		called := false
		svc := &stubService{
			createFn: func(_ context.Context, _ userapp.CreateUserInput) (*userapp.Profile, error) {
				called = true
				return nil, nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
			"name":             "Ann",
			"email":            "not-an-email",
			"password":         "short",
			"password_confirm": "different",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
		e := decodeEnvelope(t, w)
		assert.Equal(t, "must be a valid email", e.Error["email"])
		assert.Equal(t, "must be between 6 and 32 characters long", e.Error["password"])
		assert.Equal(t, "must be equal to password field", e.Error["password_confirm"])
	})

	t.Run("duplicate email maps to 409", func(t *testing.T) {
		svc := &stubService{
			createFn: func(_ context.Context, _ userapp.CreateUserInput) (*userapp.Profile, error) {
				return nil, userapp.ErrEmailAlreadyTaken
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
			"name":             "Ann",
			"email":            "ann@x.com",
			"password":         "secret1",
			"password_confirm": "secret1",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("persistence failure maps to 422 without leaking cause", func(t *testing.T) {
		svc := &stubService{
			createFn: func(_ context.Context, _ userapp.CreateUserInput) (*userapp.Profile, error) {
				return nil, errors.New("pq: connection refused on 10.0.0.3")
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
			"name":             "Ann",
			"email":            "ann@x.com",
			"password":         "secret1",
			"password_confirm": "secret1",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})
}

func TestGetUserEndpoint(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &stubService{
			getFn: func(_ context.Context, id string) (*userapp.Profile, error) {
				return &userapp.Profile{ID: id, Name: "Ann", Email: "ann@x.com"}, nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodGet, "/api/users/u1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w)
		assert.JSONEq(t, `{"id":"u1","name":"Ann","email":"ann@x.com"}`, string(e.Data))
	})

	t.Run("missing maps to 404", func(t *testing.T) {
		svc := &stubService{
			getFn: func(_ context.Context, _ string) (*userapp.Profile, error) {
				return nil, userapp.ErrUserNotFound
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodGet, "/api/users/nope", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		e := decodeEnvelope(t, w)
		assert.False(t, e.Success)
	})
}

func TestListUsersEndpoint(t *testing.T) {
	t.Run("empty store is still a 200", func(t *testing.T) {
		svc := &stubService{
			listFn: func(_ context.Context) ([]*userapp.Profile, error) {
				return []*userapp.Profile{}, nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodGet, "/api/users", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w)
		assert.True(t, e.Success)
	})

	t.Run("projects users without credentials", func(t *testing.T) {
		svc := &stubService{
			listFn: func(_ context.Context) ([]*userapp.Profile, error) {
				return []*userapp.Profile{
					{ID: "u1", Name: "Ann", Email: "ann@x.com"},
					{ID: "u2", Name: "Bob", Email: "bob@x.com"},
				}, nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodGet, "/api/users", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w)
		assert.JSONEq(t, `[
			{"id":"u1","name":"Ann","email":"ann@x.com"},
			{"id":"u2","name":"Bob","email":"bob@x.com"}
		]`, string(e.Data))
	})
}

func TestUpdateUserEndpoint(t *testing.T) {
	t.Run("success returns the id", func(t *testing.T) {
		svc := &stubService{
			updateFn: func(_ context.Context, id, name, email string) (*userapp.Profile, error) {
				return &userapp.Profile{ID: id, Name: name, Email: email}, nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPut, "/api/users/u1", gin.H{"name": "Ann", "email": "ann@x.com"})

		assert.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w)
		assert.JSONEq(t, `{"id":"u1"}`, string(e.Data))
	})

	t.Run("email conflict maps to 409", func(t *testing.T) {
		svc := &stubService{
			updateFn: func(_ context.Context, _, _, _ string) (*userapp.Profile, error) {
				return nil, userapp.ErrEmailAlreadyTaken
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPut, "/api/users/u1", gin.H{"name": "Ann", "email": "bob@x.com"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing fields map to 400", func(t *testing.T) {
		svc := &stubService{}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPut, "/api/users/u1", gin.H{"name": "Ann"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		e := decodeEnvelope(t, w)
		assert.Equal(t, "is required", e.Error["email"])
	})
}

func TestDeleteUserEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubService{
			deleteFn: func(_ context.Context, _ string) error { return nil },
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodDelete, "/api/users/u1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		e := decodeEnvelope(t, w)
		assert.JSONEq(t, `{"id":"u1"}`, string(e.Data))
	})

	t.Run("missing maps to 404", func(t *testing.T) {
		svc := &stubService{
			deleteFn: func(_ context.Context, _ string) error { return userapp.ErrUserNotFound },
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodDelete, "/api/users/nope", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestChangePasswordEndpoint(t *testing.T) {
	body := gin.H{
		"old_password":     "oldpass1",
		"new_password":     "newpass1",
		"password_confirm": "newpass1",
	}

	t.Run("success", func(t *testing.T) {
		svc := &stubService{
			changePasswordFn: func(_ context.Context, _ string, _ userapp.ChangePasswordInput) error {
				return nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users/u1/password", body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "password changed successfully")
	})

	t.Run("wrong old password maps to 400", func(t *testing.T) {
		svc := &stubService{
			changePasswordFn: func(_ context.Context, _ string, _ userapp.ChangePasswordInput) error {
				return userapp.ErrInvalidPassword
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users/u1/password", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("confirmation mismatch rejected by validation", func(t *testing.T) {
		called := false
		svc := &stubService{
			changePasswordFn: func(_ context.Context, _ string, _ userapp.ChangePasswordInput) error {
				called = true
				return nil
			},
		}
		r := newTestRouter(svc)
		w := doJSON(t, r, http.MethodPost, "/api/users/u1/password", gin.H{
			"old_password":     "oldpass1",
			"new_password":     "newpass1",
			"password_confirm": "other",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
		e := decodeEnvelope(t, w)
		assert.Equal(t, "must be equal to new_password field", e.Error["password_confirm"])
	})
}

func TestSearchUsersEndpoint(t *testing.T) {
	svc := &stubService{
		searchFn: func(_ context.Context, q string, size int) ([]map[string]any, error) {
			assert.Equal(t, "ann", q)
			assert.Equal(t, 5, size)
			return []map[string]any{{"id": "u1", "name": "Ann", "email": "ann@x.com"}}, nil
		},
	}
	r := newTestRouter(svc)
	w := doJSON(t, r, http.MethodGet, "/api/users/search?q=ann&size=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"ann@x.com"`))
}
