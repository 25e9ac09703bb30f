package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"user-management-api/internal/container"
	handlers "user-management-api/internal/interface/http"
	"user-management-api/internal/interface/middleware"
)

// UserModule wires the user CRUD handlers into routes.
// GET    /api/users
// POST   /api/users
// GET    /api/users/search
// GET    /api/users/:id
// PUT    /api/users/:id
// DELETE /api/users/:id
// POST   /api/users/:id/password

type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	readLimiter := middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	writeLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	passwordLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil) // brute-force guard

	users := rg.Group("/users")
	{
		users.GET("", readLimiter, m.Handler.List)
		users.GET("/search", readLimiter, m.Handler.Search)
		users.GET("/:id", readLimiter, m.Handler.Get)
		users.POST("", writeLimiter, m.Handler.Create)
		users.PUT("/:id", writeLimiter, m.Handler.Update)
		users.DELETE("/:id", writeLimiter, m.Handler.Delete)
		users.POST("/:id/password", passwordLimiter, m.Handler.ChangePassword)
	}
}
