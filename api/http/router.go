package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/talentmatch/backend/api/http/handlers"
)

// Register wires all HTTP routes onto given Fiber app.
func Register(
	app *fiber.App,
	auth *handlers.AuthHandler,
	health *handlers.HealthHandler,
	jobs *handlers.JobHandler,
	candidates *handlers.CandidateHandler,
	resumes *handlers.ResumeHandler,
	matching *handlers.MatchingHandler,
	authMW fiber.Handler,
) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "authorization, x-client-info, apikey, content-type",
	}))

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Health and readiness endpoints for probes/monitoring
	v1.Get("/health", health.Health)
	v1.Get("/ready", health.Ready)

	a := v1.Group("/auth")
	a.Post("/register", auth.Register)
	a.Post("/login", auth.Login)

	// Job postings
	jg := v1.Group("/jobs", authMW)
	jg.Post("/", jobs.Create)
	jg.Get("/", jobs.List)
	jg.Get("/:id", jobs.GetByID)
	jg.Put("/:id", jobs.Update)
	jg.Delete("/:id", jobs.Delete)

	// Matching
	jg.Post("/:id/matches", matching.Generate)
	jg.Get("/:id/matches", matching.ListByJob)
	v1.Get("/match-tasks/:id", authMW, matching.TaskStatus)

	// Candidates and resume intake
	cg := v1.Group("/candidates", authMW)
	cg.Get("/", candidates.List)
	cg.Get("/:id", candidates.GetByID)
	v1.Post("/resumes", authMW, resumes.Process)
}
