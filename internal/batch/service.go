package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"realname/internal/authentication"
	batchmetrics "realname/internal/batch/metrics"
	"realname/internal/method"
	"realname/internal/parser"
	"realname/internal/validator"
	"realname/pkg/domain"
	dErrors "realname/pkg/domain-errors"
	audit "realname/pkg/platform/audit"
	"realname/pkg/platform/sentinel"
)

const (
	// MaxUploadBytes caps accepted file size.
	MaxUploadBytes = 10 << 20

	// recomputeEvery is how many rows are processed between counter
	// recomputes. The counters are also recomputed once at completion.
	recomputeEvery = 10

	// DefaultStuckThreshold is how long a PROCESSING batch may run before
	// the sweeper declares it stalled.
	DefaultStuckThreshold = 30 * time.Minute
)

// Submitter is the shared submission path a row goes through once its fields
// survive sanitization and validation.
type Submitter interface {
	Submit(ctx context.Context, subject string, m method.Method, fields map[string]string) (*authentication.Record, error)
}

// AuditPublisher is the subset of the audit publisher the service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the import pipeline. Processing is single-threaded and
// synchronous per batch: rows run strictly in row order and every state
// transition commits before the next row starts.
type Service struct {
	batches BatchStore
	records RecordStore
	auth    Submitter

	logger  *slog.Logger
	audit   AuditPublisher
	metrics *batchmetrics.Metrics
	now     func() time.Time
	maxSize int64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub AuditPublisher) Option {
	return func(s *Service) { s.audit = pub }
}

func WithMetrics(m *batchmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) { s.maxSize = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(batches BatchStore, records RecordStore, auth Submitter, opts ...Option) *Service {
	s := &Service{
		batches: batches,
		records: records,
		auth:    auth,
		now:     time.Now,
		maxSize: MaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateBatch validates the upload and persists a PENDING batch. Duplicate
// content is logged and accepted; repeat uploads legitimately happen after
// partial failures.
func (s *Service) CreateBatch(ctx context.Context, content []byte, name, mimeType string, cfg map[string]string) (*Batch, error) {
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "uploaded file is empty")
	}
	if int64(len(content)) > s.maxSize {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "file exceeds the %d byte limit", s.maxSize)
	}
	if !supportedUpload(name, mimeType) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported file type %q", mimeType)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	if dupes, err := s.batches.FindByContentHash(ctx, hash); err == nil && len(dupes) > 0 {
		s.logger.WarnContext(ctx, "uploaded file duplicates an earlier batch",
			"content_hash", hash,
			"earlier_batches", len(dupes),
		)
	}

	now := s.now()
	b := &Batch{
		ID:          domain.NewBatchID(),
		FileName:    name,
		FileType:    mimeType,
		FileSize:    int64(len(content)),
		ContentHash: hash,
		Status:      BatchPending,
		Config:      cfg,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.batches.Create(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create batch")
	}

	if s.metrics != nil {
		s.metrics.IncrementBatchCreated()
	}
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventBatchCreated),
		BatchID: b.ID.String(),
	})
	return b, nil
}

// ParseAndCreateRecords parses the file, fixes totalRecords, and creates one
// PENDING record per surviving row. A header-level parse failure fails the
// whole batch.
func (s *Service) ParseAndCreateRecords(ctx context.Context, batchID domain.BatchID, content []byte) error {
	b, err := s.Get(ctx, batchID)
	if err != nil {
		return err
	}
	if b.Status != BatchPending {
		return dErrors.Newf(dErrors.CodeConflict, "batch is %s, only a pending batch can be parsed", b.Status)
	}

	rows, err := parser.Parse(content, b.FileType)
	if err != nil {
		if ferr := s.MarkAsFailed(ctx, batchID, dErrors.MessageOf(err)); ferr != nil {
			return ferr
		}
		return err
	}

	start := s.now()
	b.Status = BatchProcessing
	b.StartTime = &start
	b.TotalRecords = len(rows)
	b.UpdatedAt = start
	if err := s.batches.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update batch")
	}

	for _, row := range rows {
		now := s.now()
		rec := &Record{
			ID:        domain.NewRecordID(),
			BatchID:   b.ID,
			RowNumber: row.Number,
			Status:    RecordPending,
			RawData:   row.Fields,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.records.Create(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create batch record")
		}
	}
	return nil
}

// ProcessBatch runs every PENDING record of the batch to a terminal outcome.
// Row-level failures are recorded on the row and never abort the loop; the
// batch counters are recomputed from the stored record set every few rows and
// once more at completion.
func (s *Service) ProcessBatch(ctx context.Context, batchID domain.BatchID) error {
	b, err := s.Get(ctx, batchID)
	if err != nil {
		return err
	}
	switch b.Status {
	case BatchCancelled:
		return dErrors.New(dErrors.CodeConflict, "batch is cancelled")
	case BatchPending:
		return dErrors.New(dErrors.CodeConflict, "batch has not been parsed yet")
	}

	runStart := s.now()
	b.Status = BatchProcessing
	b.FinishTime = nil
	if b.StartTime == nil {
		b.StartTime = &runStart
	}
	b.UpdatedAt = runStart
	if err := s.batches.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update batch")
	}

	recs, err := s.records.ListByBatch(ctx, batchID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batch records")
	}

	sinceRecompute := 0
	for _, rec := range recs {
		if rec.Status != RecordPending {
			continue
		}

		outcome := s.processRow(ctx, rec)
		rec.Status = outcome.Status
		rec.ProcessedData = outcome.ProcessedData
		rec.AuthenticationID = outcome.AuthenticationID
		rec.ErrorMessage = outcome.ErrorMessage
		rec.ValidationErrors = outcome.ValidationErrors
		rec.ProcessingTimeMs = outcome.ProcessingTimeMs
		rec.UpdatedAt = s.now()
		if err := s.records.Update(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update batch record")
		}
		if s.metrics != nil {
			s.metrics.ObserveRecord(string(outcome.Status))
		}

		sinceRecompute++
		if sinceRecompute >= recomputeEvery {
			sinceRecompute = 0
			if err := s.recomputeCounters(ctx, b); err != nil {
				return err
			}
		}
	}

	if err := s.recomputeCounters(ctx, b); err != nil {
		return err
	}
	if err := s.finishProcessing(ctx, b); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveProcessBatch(runStart)
	}
	return nil
}

// RowOutcome is the terminal result of one row. Rows never surface errors;
// whatever went wrong is captured in the outcome.
type RowOutcome struct {
	Status           RecordStatus
	ProcessedData    map[string]string
	AuthenticationID domain.AuthenticationID
	ErrorMessage     string
	ValidationErrors []string
	ProcessingTimeMs int64
}

func (s *Service) processRow(ctx context.Context, rec *Record) (outcome RowOutcome) {
	start := s.now()
	defer func() {
		outcome.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	}()

	fields := validator.Sanitize(rec.RawData)

	m, ok := method.Detect(fields)
	if !ok {
		outcome.Status = RecordSkipped
		outcome.ErrorMessage = "unable to determine verification method"
		return outcome
	}

	if errs := validator.ValidateFields(m, fields); len(errs) > 0 {
		outcome.Status = RecordFailed
		outcome.ErrorMessage = "validation failed"
		outcome.ValidationErrors = errs
		return outcome
	}

	authRec, err := s.auth.Submit(ctx, subjectFor(fields), m, fields)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			outcome.Status = RecordSkipped
			outcome.ErrorMessage = "subject already has a valid authentication"
			return outcome
		}
		outcome.Status = RecordFailed
		outcome.ErrorMessage = dErrors.MessageOf(err)
		return outcome
	}

	outcome.AuthenticationID = authRec.ID
	if authRec.Status == authentication.StatusApproved {
		outcome.Status = RecordSuccess
		outcome.ProcessedData = fields
	} else {
		outcome.Status = RecordFailed
		outcome.ErrorMessage = authRec.Reason
	}
	return outcome
}

// subjectFor picks the stable subject identifier for a row: the credential
// most specific to the person being verified.
func subjectFor(fields map[string]string) string {
	for _, key := range []string{method.FieldIDNumber, method.FieldBankCard, method.FieldMobile, method.FieldName} {
		if v := fields[key]; v != "" {
			return v
		}
	}
	return ""
}

func (s *Service) recomputeCounters(ctx context.Context, b *Batch) error {
	recs, err := s.records.ListByBatch(ctx, b.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batch records")
	}
	b.Apply(Aggregate(recs))
	b.UpdatedAt = s.now()
	if err := s.batches.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update batch counters")
	}
	return nil
}

func (s *Service) finishProcessing(ctx context.Context, b *Batch) error {
	finish := s.now()
	b.Status = BatchCompleted
	b.FinishTime = &finish
	if b.StartTime != nil {
		b.Duration = finish.Sub(*b.StartTime)
	}
	b.UpdatedAt = finish
	if err := s.batches.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete batch")
	}

	s.emit(ctx, audit.Event{
		Action:  string(audit.EventBatchCompleted),
		BatchID: b.ID.String(),
		Reason:  strconv.Itoa(b.Succeeded) + " succeeded, " + strconv.Itoa(b.Failed) + " failed, " + strconv.Itoa(b.Skipped) + " skipped",
	})
	return nil
}

// MarkAsFailed transitions the batch to FAILED. Reserved for pipeline-level
// failures such as an unreadable file, never for per-record outcomes.
func (s *Service) MarkAsFailed(ctx context.Context, batchID domain.BatchID, msg string) error {
	b, err := s.Get(ctx, batchID)
	if err != nil {
		return err
	}

	finish := s.now()
	b.Status = BatchFailed
	b.ErrorMessage = msg
	b.FinishTime = &finish
	if b.StartTime != nil {
		b.Duration = finish.Sub(*b.StartTime)
	}
	b.UpdatedAt = finish
	if err := s.batches.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark batch failed")
	}

	s.emit(ctx, audit.Event{
		Action:  string(audit.EventBatchFailed),
		BatchID: b.ID.String(),
		Reason:  msg,
	})
	return nil
}

// CancelBatch cancels a batch that has not started processing. Anything past
// PENDING is a conflict.
func (s *Service) CancelBatch(ctx context.Context, batchID domain.BatchID) error {
	b, err := s.Get(ctx, batchID)
	if err != nil {
		return err
	}
	if b.Status != BatchPending {
		return dErrors.Newf(dErrors.CodeConflict, "batch is %s, only a pending batch can be cancelled", b.Status)
	}

	finish := s.now()
	b.Status = BatchCancelled
	b.FinishTime = &finish
	b.UpdatedAt = finish
	if err := s.batches.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel batch")
	}

	s.emit(ctx, audit.Event{
		Action:  string(audit.EventBatchCancelled),
		BatchID: b.ID.String(),
	})
	return nil
}

// RetryFailedRecords bulk-resets every FAILED record to PENDING and clears
// its error fields. The batch status is left alone; a following ProcessBatch
// run picks the reset rows up.
func (s *Service) RetryFailedRecords(ctx context.Context, batchID domain.BatchID) error {
	b, err := s.Get(ctx, batchID)
	if err != nil {
		return err
	}

	recs, err := s.records.ListByBatch(ctx, batchID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batch records")
	}

	reset := 0
	for _, rec := range recs {
		if rec.Status != RecordFailed {
			continue
		}
		rec.Status = RecordPending
		rec.ErrorMessage = ""
		rec.ValidationErrors = nil
		rec.AuthenticationID = domain.AuthenticationID{}
		rec.ProcessingTimeMs = 0
		rec.UpdatedAt = s.now()
		if err := s.records.Update(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset batch record")
		}
		reset++
	}

	if err := s.recomputeCounters(ctx, b); err != nil {
		return err
	}

	if reset > 0 {
		s.emit(ctx, audit.Event{
			Action:  string(audit.EventRecordsRetried),
			BatchID: b.ID.String(),
			Reason:  strconv.Itoa(reset) + " records reset",
		})
	}
	return nil
}

// Get returns one batch by ID.
func (s *Service) Get(ctx context.Context, id domain.BatchID) (*Batch, error) {
	b, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find batch")
	}
	return b, nil
}

// Records returns a batch's records in row order.
func (s *Service) Records(ctx context.Context, id domain.BatchID) ([]*Record, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	recs, err := s.records.ListByBatch(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batch records")
	}
	return recs, nil
}

// FindByContentHash returns every batch that uploaded identical bytes.
func (s *Service) FindByContentHash(ctx context.Context, hash string) ([]*Batch, error) {
	batches, err := s.batches.FindByContentHash(ctx, hash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find batches by hash")
	}
	return batches, nil
}

// FindStuck returns PROCESSING batches older than the threshold. A crash
// mid-run leaves a batch parked in PROCESSING; this is the query the sweeper
// consumes.
func (s *Service) FindStuck(ctx context.Context, threshold time.Duration) ([]*Batch, error) {
	stuck, err := s.batches.FindStuck(ctx, s.now().Add(-threshold))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find stuck batches")
	}
	return stuck, nil
}

// SweepStuck fails every batch stuck in PROCESSING longer than the threshold
// and returns how many were swept.
func (s *Service) SweepStuck(ctx context.Context, threshold time.Duration) (int, error) {
	stuck, err := s.FindStuck(ctx, threshold)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, b := range stuck {
		if err := s.MarkAsFailed(ctx, b.ID, "processing stalled past the stuck threshold"); err != nil {
			s.logger.WarnContext(ctx, "failed to sweep stuck batch", "batch_id", b.ID, "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

// supportedUpload accepts delimited text uploads by MIME type or extension.
func supportedUpload(name, mimeType string) bool {
	mt := strings.ToLower(mimeType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "text/csv", "application/csv", "text/tab-separated-values", "text/plain", "application/vnd.ms-excel":
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return true
	}
	return false
}
