// Package handler exposes provider directory administration over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"realname/internal/method"
	"realname/internal/provider"
	dErrors "realname/pkg/domain-errors"
	"realname/pkg/platform/httputil"
	pstrings "realname/pkg/platform/strings"
)

// Directory defines the interface for provider directory operations.
type Directory interface {
	Register(ctx context.Context, p *provider.Provider) error
	Update(ctx context.Context, p *provider.Provider) error
	FindByCode(ctx context.Context, code string) (*provider.Provider, error)
	List(ctx context.Context) ([]*provider.Provider, error)
}

// Handler handles provider directory endpoints.
type Handler struct {
	logger    *slog.Logger
	directory Directory
}

// New creates a new provider Handler.
func New(directory Directory, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, directory: directory}
}

// Register registers the provider routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/providers", h.handleRegister)
	r.Get("/providers", h.handleList)
	r.Get("/providers/{code}", h.handleGet)
	r.Put("/providers/{code}", h.handleUpdate)
}

type registerRequest struct {
	Name         string            `json:"name"`
	Code         string            `json:"code"`
	Type         string            `json:"type"`
	Methods      []string          `json:"supported_methods"`
	Endpoint     string            `json:"endpoint"`
	SecretConfig map[string]string `json:"secret_config"`
	Priority     int               `json:"priority"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	methods, err := parseMethods(req.Methods)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := provider.New(req.Name, req.Code, provider.Type(req.Type), methods, req.Endpoint, req.Priority)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	for k, v := range req.SecretConfig {
		p.SecretConfig[k] = v
	}

	if err := h.directory.Register(ctx, p); err != nil {
		h.logger.WarnContext(ctx, "provider registration rejected", "code", req.Code, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProviderResponse(p))
}

type updateRequest struct {
	Active   *bool `json:"active"`
	Valid    *bool `json:"valid"`
	Priority *int  `json:"priority"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.directory.FindByCode(ctx, chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.Valid != nil {
		p.Valid = *req.Valid
	}
	if req.Priority != nil {
		if *req.Priority < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "provider priority must not be negative"))
			return
		}
		p.Priority = *req.Priority
	}

	if err := h.directory.Update(ctx, p); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProviderResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.directory.FindByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProviderResponse(p))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	providers, err := h.directory.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		out = append(out, toProviderResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func parseMethods(raw []string) ([]method.Method, error) {
	raw = pstrings.DedupeAndTrimLower(raw)
	methods := make([]method.Method, 0, len(raw))
	for _, r := range raw {
		m, ok := method.Parse(r)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown method %q", r)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// providerResponse never echoes the secret config.
type providerResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	Type     string   `json:"type"`
	Methods  []string `json:"supported_methods"`
	Endpoint string   `json:"endpoint"`
	Active   bool     `json:"active"`
	Priority int      `json:"priority"`
	Valid    bool     `json:"valid"`
}

func toProviderResponse(p *provider.Provider) providerResponse {
	methods := make([]string, 0, len(p.SupportedMethods))
	for _, m := range p.SupportedMethods {
		methods = append(methods, string(m))
	}
	return providerResponse{
		ID:       p.ID.String(),
		Name:     p.Name,
		Code:     p.Code,
		Type:     string(p.Type),
		Methods:  methods,
		Endpoint: p.Endpoint,
		Active:   p.Active,
		Priority: p.Priority,
		Valid:    p.Valid,
	}
}
