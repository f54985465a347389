package provider

import (
	"context"
	"errors"
	"log/slog"

	"realname/internal/method"
	"realname/pkg/domain"
	dErrors "realname/pkg/domain-errors"
	audit "realname/pkg/platform/audit"
	"realname/pkg/platform/sentinel"
)

// AuditPublisher is the subset of the audit publisher the directory needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Directory registers providers and selects the best one per method.
type Directory struct {
	store  Store
	logger *slog.Logger
	audit  AuditPublisher
}

type DirectoryOption func(*Directory)

func WithLogger(logger *slog.Logger) DirectoryOption {
	return func(d *Directory) { d.logger = logger }
}

func WithAuditPublisher(pub AuditPublisher) DirectoryOption {
	return func(d *Directory) { d.audit = pub }
}

func NewDirectory(store Store, opts ...DirectoryOption) *Directory {
	d := &Directory{store: store}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Register adds a provider, enforcing global code uniqueness.
func (d *Directory) Register(ctx context.Context, p *Provider) error {
	if err := d.store.CreateIfCodeAvailable(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeConflict, "provider code %q is already registered", p.Code)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register provider")
	}

	if d.audit != nil {
		_ = d.audit.Emit(ctx, audit.Event{
			Action:   string(audit.EventProviderRegistered),
			Provider: p.Code,
		})
	}
	return nil
}

// Update persists provider flag or priority changes.
func (d *Directory) Update(ctx context.Context, p *Provider) error {
	if err := d.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "provider not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update provider")
	}
	return nil
}

// FindByCode looks up one provider by its unique code.
func (d *Directory) FindByCode(ctx context.Context, code string) (*Provider, error) {
	p, err := d.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "provider %q not found", code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find provider")
	}
	return p, nil
}

// FindByID looks up one provider by ID.
func (d *Directory) FindByID(ctx context.Context, id domain.ProviderID) (*Provider, error) {
	p, err := d.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "provider not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find provider")
	}
	return p, nil
}

// List returns every registered provider.
func (d *Directory) List(ctx context.Context) ([]*Provider, error) {
	providers, err := d.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list providers")
	}
	return providers, nil
}

// SelectBest returns the active, valid provider supporting m with the highest
// priority. Priority ties break on storage order. Returns CodeNotFound when no
// provider can serve the method.
func (d *Directory) SelectBest(ctx context.Context, m method.Method) (*Provider, error) {
	providers, err := d.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list providers")
	}

	var best *Provider
	for _, p := range providers {
		if !p.Selectable(m) {
			continue
		}
		if best == nil || p.Priority > best.Priority {
			best = p
		}
	}
	if best == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no provider available for method %s", m)
	}
	return best, nil
}
