// Package handler exposes direct authentication submission over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"realname/internal/authentication"
	"realname/internal/method"
	"realname/internal/provider"
	"realname/pkg/domain"
	dErrors "realname/pkg/domain-errors"
	"realname/pkg/platform/httputil"
)

// Service defines the interface for authentication operations.
type Service interface {
	Submit(ctx context.Context, subject string, m method.Method, fields map[string]string) (*authentication.Record, error)
	Get(ctx context.Context, id domain.AuthenticationID) (*authentication.Record, error)
	Results(ctx context.Context, id domain.AuthenticationID) ([]*provider.Result, error)
}

// Handler handles authentication endpoints.
type Handler struct {
	logger *slog.Logger
	auth   Service
}

// New creates a new authentication Handler.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, auth: auth}
}

// Register registers the authentication routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/authentications", h.handleSubmit)
	r.Get("/authentications/{authenticationID}", h.handleGet)
	r.Get("/authentications/{authenticationID}/results", h.handleResults)
}

type submitRequest struct {
	Subject string            `json:"subject"`
	Method  string            `json:"method"`
	Fields  map[string]string `json:"fields"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, ok := method.Parse(req.Method)
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown method %q", req.Method))
		return
	}

	rec, err := h.auth.Submit(ctx, req.Subject, m, req.Fields)
	if err != nil {
		h.logger.WarnContext(ctx, "authentication submission rejected",
			"method", req.Method,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAuthenticationID(chi.URLParam(r, "authenticationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.auth.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAuthenticationID(chi.URLParam(r, "authenticationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.auth.Results(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]resultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toResultResponse(res))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": out})
}

type recordResponse struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Method     string     `json:"method"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	ExpireTime *time.Time `json:"expire_time,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toRecordResponse(rec *authentication.Record) recordResponse {
	return recordResponse{
		ID:         rec.ID.String(),
		Subject:    rec.Subject,
		Method:     string(rec.Method),
		Status:     string(rec.Status),
		Reason:     rec.Reason,
		ExpireTime: rec.ExpireTime,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

type resultResponse struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Success      bool      `json:"success"`
	Confidence   *float64  `json:"confidence,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	ProviderID   string    `json:"provider_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func toResultResponse(res *provider.Result) resultResponse {
	return resultResponse{
		ID:           res.ID.String(),
		RequestID:    res.RequestID,
		Success:      res.Success,
		Confidence:   res.Confidence,
		ErrorCode:    res.ErrorCode,
		ErrorMessage: res.ErrorMessage,
		LatencyMs:    res.LatencyMs,
		ProviderID:   res.ProviderID.String(),
		CreatedAt:    res.CreatedAt,
	}
}
