package server

import (
	"github.com/gofiber/fiber/v2"

	"docintake/internal/core/intake"
	"docintake/internal/core/job"
	"docintake/internal/health"
	"docintake/internal/platform/redis"
)

type Dependencies struct {
	Job    *job.Service
	Intake *intake.Service
	Redis  *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Redis)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	intakeHandler := intake.NewHandler(d.Intake, d.Job)
	api.Post("/intake/jobs", intakeHandler.HandleCreate)
	api.Get("/intake/jobs/:jobId", intakeHandler.HandleGet)

	return healthHandler
}
