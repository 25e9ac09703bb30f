package router

import (
	userapp "user-management-api/internal/application"
	"user-management-api/internal/container"
	pginfra "user-management-api/internal/infrastructure/postgres"
	handlers "user-management-api/internal/interface/http"
	"user-management-api/internal/router/modules"
)

func buildUserModule() *modules.UserModule {
	repo := pginfra.NewUserRepository(container.GetPGPool())

	service := userapp.NewService(
		repo,
		container.GetLogger(),
		container.GetRabbitPub(),
		container.GetES(),
		container.GetConfig().ESUsersIndex,
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	return modules.NewUserModule(handler)
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildUserModule())
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
