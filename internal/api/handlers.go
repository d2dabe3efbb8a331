package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nordvik/plume/internal/apperr"
	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// projectName extracts the project name from the URL parameter. Supports
// percent-encoded names (e.g. travel%20blog).
func projectName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeErr maps domain errors to HTTP responses.
func writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid name"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrNotConfigured):
		writeJSON(w, http.StatusBadRequest, errorBody("wordpress connection is not configured"))
	case errors.Is(err, apperr.ErrAuth):
		writeJSON(w, http.StatusBadGateway, errorBody("provider rejected the API key"))
	case apperr.Upstream(err) != nil:
		up := apperr.Upstream(err)
		slog.Error(op+" failed upstream", slog.Int("status", up.Status), slog.String("body", up.Body))
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrParse), errors.Is(err, apperr.ErrEmptyResult):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// loadProject resolves the {name} URL parameter to a stored project,
// writing the error response itself when that fails.
func (h *Handler) loadProject(w http.ResponseWriter, r *http.Request) (string, *project.Project, bool) {
	name := projectName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return "", nil, false
	}
	proj, err := h.svc.GetProject(name)
	if err != nil {
		writeErr(w, "get project", err)
		return "", nil, false
	}
	if proj == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return "", nil, false
	}
	return name, proj, true
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List project names
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListProjects()
	if err != nil {
		writeErr(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: names})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a new project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	ProjectDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	proj, err := h.svc.CreateProject(req.Name)
	if err != nil {
		writeErr(w, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

// GetProject handles GET /api/projects/{name}.
//
//	@Summary		Get a single project by name
//	@Tags			projects
//	@Produce		json
//	@Param			name	path		string	true	"Project name"
//	@Success		200		{object}	ProjectDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	_, proj, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// ReplaceProject handles PUT /api/projects/{name}.
//
//	@Summary		Replace a project record wholesale
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Project name"
//	@Param			body	body		ProjectDetail	true	"Full project record"
//	@Success		200		{object}	ProjectDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name} [put]
func (h *Handler) ReplaceProject(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	var req project.Project
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.ReplaceProject(name, req); err != nil {
		writeErr(w, "replace project", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// DeleteProject handles DELETE /api/projects/{name}.
//
//	@Summary		Delete a project
//	@Tags			projects
//	@Param			name	path	string	true	"Project name"
//	@Success		204		"Project deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.svc.DeleteProject(name); err != nil {
		writeErr(w, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSecrets handles GET /api/secrets.
//
//	@Summary		Report stored provider keys as masked previews
//	@Tags			secrets
//	@Produce		json
//	@Success		200	{object}	SecretsResponse
//	@Security		BearerAuth
//	@Router			/secrets [get]
func (h *Handler) GetSecrets(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Secrets()
	if err != nil {
		writeErr(w, "get secrets", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetSecret handles PUT /api/secrets/{key}.
//
//	@Summary		Store a provider API key
//	@Tags			secrets
//	@Accept			json
//	@Param			key		path	string				true	"Key name"	Enums(textApiKey, imageApiKey)
//	@Param			body	body	SetSecretRequest	true	"Key value"
//	@Success		204		"Key stored"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/secrets/{key} [put]
func (h *Handler) SetSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key != settings.KeyTextAPI && key != settings.KeyImageAPI {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown secret key"))
		return
	}
	var req SetSecretRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SetSecret(key, req.Value); err != nil {
		writeErr(w, "set secret", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateText handles POST /api/generate/text.
//
//	@Summary		Generate article text for a project and topic
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateTextRequest	true	"Generation request"
//	@Success		200		{object}	pipeline.Article
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/generate/text [post]
func (h *Handler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Project == "" || req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("project and topic are required"))
		return
	}
	proj, err := h.svc.GetProject(req.Project)
	if err != nil {
		writeErr(w, "get project", err)
		return
	}
	if proj == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	article, err := h.svc.GenerateText(r.Context(), *proj, req.Topic)
	if err != nil {
		writeErr(w, "generate text", err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// SuggestImagePrompts handles POST /api/generate/image-prompts.
//
//	@Summary		Suggest image prompts for an article
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SuggestPromptsRequest	true	"Suggestion request"
//	@Success		200		{object}	SuggestPromptsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/generate/image-prompts [post]
func (h *Handler) SuggestImagePrompts(w http.ResponseWriter, r *http.Request) {
	var req SuggestPromptsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Project == "" || req.HTML == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("project and html are required"))
		return
	}
	proj, err := h.svc.GetProject(req.Project)
	if err != nil {
		writeErr(w, "get project", err)
		return
	}
	if proj == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	prompts, err := h.svc.SuggestImagePrompts(r.Context(), *proj, req.HTML, req.Count)
	if err != nil {
		writeErr(w, "suggest image prompts", err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestPromptsResponse{Prompts: prompts})
}

// GenerateImages handles POST /api/generate/images.
//
//	@Summary		Generate one image per prompt
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateImagesRequest	true	"Prompts"
//	@Success		200		{object}	GenerateImagesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/generate/images [post]
func (h *Handler) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req GenerateImagesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Prompts) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("prompts are required"))
		return
	}
	results := h.svc.GenerateImages(r.Context(), req.Prompts)
	writeJSON(w, http.StatusOK, GenerateImagesResponse{Images: results})
}

// ListCategories handles GET /api/projects/{name}/categories.
//
//	@Summary		List the project's CMS categories
//	@Tags			wordpress
//	@Produce		json
//	@Param			name	path		string	true	"Project name"
//	@Success		200		{object}	CategoryListResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name}/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	_, proj, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	cats, err := h.svc.ListCategories(r.Context(), *proj)
	if err != nil {
		writeErr(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: cats})
}

// UploadImages handles POST /api/projects/{name}/images/upload.
//
//	@Summary		Upload generated images to the project's media endpoint
//	@Tags			wordpress
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string				true	"Project name"
//	@Param			body	body		UploadImagesRequest	true	"Images to upload"
//	@Success		200		{object}	UploadImagesResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name}/images/upload [post]
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	_, proj, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	var req UploadImagesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	results := h.svc.UploadImages(r.Context(), *proj, req.Images)
	writeJSON(w, http.StatusOK, UploadImagesResponse{Uploads: results})
}

// Resolve handles POST /api/projects/{name}/images/resolve.
//
//	@Summary		Replace image placeholders with uploaded media markup
//	@Tags			wordpress
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Project name"
//	@Param			body	body		ResolveRequest	true	"Document and upload outcomes"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name}/images/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	_, proj, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	var req ResolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HTML == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("html is required"))
		return
	}
	merged, err := h.svc.Resolve(r.Context(), *proj, req.HTML, req.Uploads, req.UseModel)
	if err != nil {
		writeErr(w, "resolve placeholders", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{HTML: merged})
}

// Publish handles POST /api/projects/{name}/publish.
//
//	@Summary		Run the full publishing pipeline for a topic
//	@Tags			pipeline
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Project name"
//	@Param			body	body		PublishRequest	true	"Run request"
//	@Success		200		{object}	RunReport
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name}/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	name, proj, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	var req PublishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic is required"))
		return
	}
	report, err := h.svc.Publish(r.Context(), name, *proj, req)
	if err != nil {
		// The report still carries the partial run when present.
		if report != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  err.Error(),
				"report": report,
			})
			return
		}
		writeErr(w, "publish", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
