package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects CRUD.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Get("/projects/{name}", h.GetProject)
	r.Put("/projects/{name}", h.ReplaceProject)
	r.Delete("/projects/{name}", h.DeleteProject)

	// Provider keys.
	r.Get("/secrets", h.GetSecrets)
	r.Put("/secrets/{key}", h.SetSecret)

	// Generation stages.
	r.Post("/generate/text", h.GenerateText)
	r.Post("/generate/image-prompts", h.SuggestImagePrompts)
	r.Post("/generate/images", h.GenerateImages)

	// Per-project CMS operations.
	r.Get("/projects/{name}/categories", h.ListCategories)
	r.Post("/projects/{name}/images/upload", h.UploadImages)
	r.Post("/projects/{name}/images/resolve", h.Resolve)
	r.Post("/projects/{name}/publish", h.Publish)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
