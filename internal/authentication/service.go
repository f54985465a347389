package authentication

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"realname/internal/method"
	"realname/internal/provider"
	"realname/internal/ratelimit"
	"realname/internal/validator"
	"realname/pkg/domain"
	dErrors "realname/pkg/domain-errors"
	audit "realname/pkg/platform/audit"
	"realname/pkg/platform/sentinel"
)

const (
	// DefaultValidity is how long an approved authentication stays blocking.
	DefaultValidity = 365 * 24 * time.Hour
	// DefaultPendingTTL bounds how long an unfinished attempt can block new
	// submissions before the sweeper expires it.
	DefaultPendingTTL = 24 * time.Hour
)

// AuditPublisher is the subset of the audit publisher the service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the shared submission path: sanitize, validate, conflict and
// quota checks, then one provider call. Both the direct API and the per-row
// batch path go through Submit.
type Service struct {
	records   Store
	results   ResultStore
	limiter   *ratelimit.Limiter
	directory *provider.Directory
	invoker   *provider.Invoker

	logger     *slog.Logger
	audit      AuditPublisher
	now        func() time.Time
	validity   time.Duration
	pendingTTL time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub AuditPublisher) Option {
	return func(s *Service) { s.audit = pub }
}

func WithValidity(d time.Duration) Option {
	return func(s *Service) { s.validity = d }
}

func WithPendingTTL(d time.Duration) Option {
	return func(s *Service) { s.pendingTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(records Store, results ResultStore, limiter *ratelimit.Limiter, directory *provider.Directory, invoker *provider.Invoker, opts ...Option) *Service {
	s := &Service{
		records:    records,
		results:    results,
		limiter:    limiter,
		directory:  directory,
		invoker:    invoker,
		now:        time.Now,
		validity:   DefaultValidity,
		pendingTTL: DefaultPendingTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Submit runs one verification attempt end to end. Input, conflict, and quota
// problems come back as coded errors with no record created; a completed
// attempt always returns the record, approved or rejected.
func (s *Service) Submit(ctx context.Context, subject string, m method.Method, fields map[string]string) (*Record, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject is required")
	}
	if !m.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown method %q", m)
	}

	fields = validator.Sanitize(fields)
	if errs := validator.ValidateFields(m, fields); len(errs) > 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, strings.Join(errs, "; "))
	}

	if _, err := s.records.FindBlocking(ctx, subject, m); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "subject already has a valid %s authentication", m)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing authentications")
	}

	if err := s.limiter.Allow(ctx, subject, m); err != nil {
		if dErrors.HasCode(err, dErrors.CodeRateLimited) {
			s.emit(ctx, audit.Event{
				Action:      string(audit.EventRateLimitExceeded),
				SubjectHash: audit.HashSubject(subject),
				Method:      string(m),
			})
		}
		return nil, err
	}

	now := s.now()
	pendingUntil := now.Add(s.pendingTTL)
	rec := &Record{
		ID:            domain.NewAuthenticationID(),
		Subject:       subject,
		Method:        m,
		Status:        StatusPending,
		SubmittedData: fields,
		ExpireTime:    &pendingUntil,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.records.CreateIfNoActive(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "subject already has a valid %s authentication", m)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create authentication record")
	}

	rec.Status = StatusProcessing
	rec.UpdatedAt = s.now()
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update authentication record")
	}

	p, err := s.directory.SelectBest(ctx, m)
	if err != nil {
		return s.reject(ctx, rec, provider.ErrCodeProvider, "no provider available for method "+string(m))
	}

	res := s.invoker.Invoke(ctx, p, m, fields)
	res.AuthenticationID = rec.ID
	if err := s.results.CreateResult(ctx, res); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification result")
	}
	rec.LatestResult = res

	if !res.Success {
		if res.ErrorCode == provider.ErrCodeProvider {
			s.emit(ctx, audit.Event{
				Action:      string(audit.EventProviderFailed),
				SubjectHash: audit.HashSubject(subject),
				Method:      string(m),
				Provider:    p.Code,
				Reason:      res.ErrorMessage,
			})
		}
		return s.reject(ctx, rec, res.ErrorCode, res.ErrorMessage)
	}

	expireAt := s.now().Add(s.validity)
	rec.Status = StatusApproved
	rec.ExpireTime = &expireAt
	rec.Reason = ""
	rec.UpdatedAt = s.now()
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update authentication record")
	}

	s.emit(ctx, audit.Event{
		Action:      string(audit.EventAuthenticationApproved),
		SubjectHash: audit.HashSubject(subject),
		Method:      string(m),
		Provider:    p.Code,
	})
	return rec, nil
}

func (s *Service) reject(ctx context.Context, rec *Record, code, reason string) (*Record, error) {
	rec.Status = StatusRejected
	rec.Reason = reason
	if code != "" {
		rec.Reason = code + ": " + reason
	}
	rec.UpdatedAt = s.now()
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update authentication record")
	}

	s.emit(ctx, audit.Event{
		Action:      string(audit.EventAuthenticationRejected),
		SubjectHash: audit.HashSubject(rec.Subject),
		Method:      string(rec.Method),
		Reason:      rec.Reason,
	})
	return rec, nil
}

// Get returns one authentication record by ID.
func (s *Service) Get(ctx context.Context, id domain.AuthenticationID) (*Record, error) {
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "authentication record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find authentication record")
	}
	return rec, nil
}

// Results returns every provider result stored for one record.
func (s *Service) Results(ctx context.Context, id domain.AuthenticationID) ([]*provider.Result, error) {
	results, err := s.results.ListResults(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification results")
	}
	return results, nil
}

// ExpireOverdue marks every blocking record whose expiry has passed as
// EXPIRED and returns how many were transitioned. Meant to run periodically.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.records.ListOverdue(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list overdue records")
	}

	expired := 0
	for _, rec := range overdue {
		rec.Status = StatusExpired
		rec.Reason = "validity window elapsed"
		rec.UpdatedAt = s.now()
		if err := s.records.Update(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "failed to expire authentication record",
				"authentication_id", rec.ID,
				"error", err,
			)
			continue
		}
		expired++

		s.emit(ctx, audit.Event{
			Action:      string(audit.EventAuthenticationExpired),
			SubjectHash: audit.HashSubject(rec.Subject),
			Method:      string(rec.Method),
		})
	}
	return expired, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
