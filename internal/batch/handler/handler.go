// Package handler exposes the batch pipeline over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"realname/internal/batch"
	"realname/internal/parser"
	"realname/pkg/domain"
	dErrors "realname/pkg/domain-errors"
	"realname/pkg/platform/httputil"
)

// Service defines the interface for batch operations.
type Service interface {
	CreateBatch(ctx context.Context, content []byte, name, mimeType string, cfg map[string]string) (*batch.Batch, error)
	ParseAndCreateRecords(ctx context.Context, batchID domain.BatchID, content []byte) error
	ProcessBatch(ctx context.Context, batchID domain.BatchID) error
	CancelBatch(ctx context.Context, batchID domain.BatchID) error
	RetryFailedRecords(ctx context.Context, batchID domain.BatchID) error
	Get(ctx context.Context, id domain.BatchID) (*batch.Batch, error)
	Records(ctx context.Context, id domain.BatchID) ([]*batch.Record, error)
}

// Handler handles batch endpoints.
type Handler struct {
	logger  *slog.Logger
	batches Service
	maxSize int64
}

// New creates a new batch Handler.
func New(batches Service, logger *slog.Logger, maxSize int64) *Handler {
	if maxSize <= 0 {
		maxSize = batch.MaxUploadBytes
	}
	return &Handler{
		logger:  logger,
		batches: batches,
		maxSize: maxSize,
	}
}

// Register registers the batch routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/batches/template", h.handleTemplate)
	r.Post("/batches", h.handleUpload)
	r.Get("/batches/{batchID}", h.handleGet)
	r.Get("/batches/{batchID}/records", h.handleRecords)
	r.Post("/batches/{batchID}/process", h.handleProcess)
	r.Post("/batches/{batchID}/cancel", h.handleCancel)
	r.Post("/batches/{batchID}/retry", h.handleRetry)
}

// handleUpload accepts a multipart upload, creates the batch, and parses it
// into pending records. Processing is started separately.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid multipart upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "missing file field"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read upload"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	cfg := map[string]string{}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			cfg[key] = values[0]
		}
	}

	b, err := h.batches.CreateBatch(ctx, content, header.Filename, mimeType, cfg)
	if err != nil {
		h.logger.WarnContext(ctx, "batch upload rejected", "error", err)
		httputil.WriteError(w, err)
		return
	}

	if err := h.batches.ParseAndCreateRecords(ctx, b.ID, content); err != nil {
		h.logger.WarnContext(ctx, "batch parse failed", "batch_id", b.ID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	b, err = h.batches.Get(ctx, b.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toBatchResponse(b))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	b, err := h.batches.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBatchResponse(b))
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	recs, err := h.batches.Records(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batches.ProcessBatch)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batches.CancelBatch)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batches.RetryFailedRecords)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.BatchID) error) {
	ctx := r.Context()

	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := op(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "batch transition rejected", "batch_id", id, "error", err)
		httputil.WriteError(w, err)
		return
	}

	b, err := h.batches.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBatchResponse(b))
}

func (h *Handler) handleTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="realname-import-template.csv"`)
	w.Write(parser.Template())
}

type batchResponse struct {
	ID           string            `json:"id"`
	FileName     string            `json:"file_name"`
	FileType     string            `json:"file_type"`
	FileSize     int64             `json:"file_size"`
	ContentHash  string            `json:"content_hash"`
	Status       string            `json:"status"`
	TotalRecords int               `json:"total_records"`
	Processed    int               `json:"processed_records"`
	Succeeded    int               `json:"success_records"`
	Failed       int               `json:"failed_records"`
	Skipped      int               `json:"skipped_records"`
	StartTime    *time.Time        `json:"start_time,omitempty"`
	FinishTime   *time.Time        `json:"finish_time,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Config       map[string]string `json:"config,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toBatchResponse(b *batch.Batch) batchResponse {
	return batchResponse{
		ID:           b.ID.String(),
		FileName:     b.FileName,
		FileType:     b.FileType,
		FileSize:     b.FileSize,
		ContentHash:  b.ContentHash,
		Status:       string(b.Status),
		TotalRecords: b.TotalRecords,
		Processed:    b.Processed,
		Succeeded:    b.Succeeded,
		Failed:       b.Failed,
		Skipped:      b.Skipped,
		StartTime:    b.StartTime,
		FinishTime:   b.FinishTime,
		DurationMs:   b.Duration.Milliseconds(),
		Config:       b.Config,
		ErrorMessage: b.ErrorMessage,
		CreatedAt:    b.CreatedAt,
	}
}

type recordResponse struct {
	ID               string            `json:"id"`
	RowNumber        int               `json:"row_number"`
	Status           string            `json:"status"`
	RawData          map[string]string `json:"raw_data,omitempty"`
	ProcessedData    map[string]string `json:"processed_data,omitempty"`
	AuthenticationID string            `json:"authentication_id,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	ValidationErrors []string          `json:"validation_errors,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

func toRecordResponse(rec *batch.Record) recordResponse {
	out := recordResponse{
		ID:               rec.ID.String(),
		RowNumber:        rec.RowNumber,
		Status:           string(rec.Status),
		RawData:          rec.RawData,
		ProcessedData:    rec.ProcessedData,
		ErrorMessage:     rec.ErrorMessage,
		ValidationErrors: rec.ValidationErrors,
		ProcessingTimeMs: rec.ProcessingTimeMs,
	}
	if !rec.AuthenticationID.IsNil() {
		out.AuthenticationID = rec.AuthenticationID.String()
	}
	return out
}
