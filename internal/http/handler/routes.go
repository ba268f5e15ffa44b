package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/http/middleware"
	"docarchive/internal/service"
	"docarchive/internal/storage"
	"docarchive/internal/validation"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	DB        *sql.DB
	Documents service.DocumentService
	Auth      service.AuthService
	Tokens    middleware.TokenVerifier
	Store     storage.Storage
	Validator *validation.Validator
	// CORSOrigins is passed to middleware.CORS; empty allows any origin.
	CORSOrigins string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Document routes sit behind the bearer token gate.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Validator == nil {
		d.Validator = validation.New()
	}

	app.Use(middleware.CORS(d.CORSOrigins))

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	app.Get("/uploads/:name", ServeUpload(d.Store))

	api := app.Group("/api")
	api.Get("/health", APIHealth())
	api.Post("/auth/login", Login(d.Auth, d.Validator))

	docs := api.Group("/documents", middleware.RequireAuth(d.Tokens))
	docs.Post("", CreateDocument(d.Documents, d.Validator))
	docs.Get("", ListDocuments(d.Documents, d.Validator))
	docs.Put("/:id", UpdateDocument(d.Documents, d.Validator))
	docs.Delete("/:id", DeleteDocument(d.Documents))
}
