package authentication

import (
	"context"

	"realname/internal/method"
	"realname/internal/provider"
	"realname/pkg/domain"
)

// Store persists authentication records. CreateIfNoActive must atomically
// enforce the one-blocking-record-per-(subject, method) invariant and return
// sentinel.ErrConflict when violated.
type Store interface {
	CreateIfNoActive(ctx context.Context, r *Record) error
	Update(ctx context.Context, r *Record) error
	FindByID(ctx context.Context, id domain.AuthenticationID) (*Record, error)
	FindBlocking(ctx context.Context, subject string, m method.Method) (*Record, error)
	ListOverdue(ctx context.Context) ([]*Record, error)
}

// ResultStore persists the raw provider results a record accumulates.
type ResultStore interface {
	CreateResult(ctx context.Context, res *provider.Result) error
	ListResults(ctx context.Context, id domain.AuthenticationID) ([]*provider.Result, error)
}
