package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "user-management-api/internal/application"
	"user-management-api/pkg/response"
	"user-management-api/pkg/validation"
)

// UserService is the slice of the application service the handlers consume.
type UserService interface {
	ListUsers(ctx context.Context) ([]*userapp.Profile, error)
	GetUser(ctx context.Context, id string) (*userapp.Profile, error)
	CreateUser(ctx context.Context, in userapp.CreateUserInput) (*userapp.Profile, error)
	UpdateUser(ctx context.Context, id, name, email string) (*userapp.Profile, error)
	DeleteUser(ctx context.Context, id string) error
	ChangePassword(ctx context.Context, id string, in userapp.ChangePasswordInput) error
	SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error)
}

type UserHandler struct {
	Svc    UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=100"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

type updateUserRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Email string `json:"email" binding:"required,email"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=NewPassword"`
}

// writeServiceError maps the service's closed error set onto HTTP statuses.
// Unclassified errors are logged and answered with a generic 422; store
// internals are never echoed to the client.
func (h *UserHandler) writeServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, userapp.ErrInvalidPassword):
		resp := response.Error[any](c, http.StatusBadRequest, "invalid password", nil)
		c.JSON(resp.Status, resp)
	case errors.Is(err, userapp.ErrUserNotFound):
		resp := response.Error[any](c, http.StatusNotFound, "user not found", nil)
		c.JSON(resp.Status, resp)
	case errors.Is(err, userapp.ErrEmailAlreadyTaken):
		resp := response.Error[any](c, http.StatusConflict, "this email is already taken, try using another one", nil)
		c.JSON(resp.Status, resp)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("action", action).Error("user operation failed")
		}
		resp := response.Error[any](c, http.StatusUnprocessableEntity, "failed to "+action, nil)
		c.JSON(resp.Status, resp)
	}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err, "list users")
		return
	}
	resp := response.Success(c, http.StatusOK, users, "users", nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "get user")
		return
	}
	resp := response.Success(c, http.StatusOK, u, "user", nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	_, err := h.Svc.CreateUser(c.Request.Context(), userapp.CreateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.writeServiceError(c, err, "create user")
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"name": req.Name, "email": req.Email}, "user created", nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	if _, err := h.Svc.UpdateUser(c.Request.Context(), id, req.Name, req.Email); err != nil {
		h.writeServiceError(c, err, "update user")
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"id": id}, "user updated", nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.DeleteUser(c.Request.Context(), id); err != nil {
		h.writeServiceError(c, err, "delete user")
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"id": id}, "user deleted", nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	id := c.Param("id")
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	err := h.Svc.ChangePassword(c.Request.Context(), id, userapp.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.writeServiceError(c, err, "change password")
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"message": "password changed successfully"}, "password changed", nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.writeServiceError(c, err, "search users")
		return
	}
	resp := response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
	c.JSON(resp.Status, resp)
}
