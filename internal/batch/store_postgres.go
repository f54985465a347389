package batch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"realname/pkg/domain"
	"realname/pkg/platform/sentinel"
)

// PostgresBatchStore persists batches in the import_batches table.
type PostgresBatchStore struct {
	pool *pgxpool.Pool
}

func NewPostgresBatchStore(pool *pgxpool.Pool) *PostgresBatchStore {
	return &PostgresBatchStore{pool: pool}
}

const batchColumns = `id, file_name, file_type, file_size, content_hash, status,
	total_records, processed_records, success_records, failed_records, skipped_records,
	start_time, finish_time, duration_ms, config, error_message, created_at, updated_at`

func (s *PostgresBatchStore) Create(ctx context.Context, b *Batch) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_batches (`+batchColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		b.ID.String(), b.FileName, b.FileType, b.FileSize, b.ContentHash, string(b.Status),
		b.TotalRecords, b.Processed, b.Succeeded, b.Failed, b.Skipped,
		b.StartTime, b.FinishTime, b.Duration.Milliseconds(), b.Config, b.ErrorMessage,
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (s *PostgresBatchStore) Update(ctx context.Context, b *Batch) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE import_batches SET
			status = $2, total_records = $3, processed_records = $4,
			success_records = $5, failed_records = $6, skipped_records = $7,
			start_time = $8, finish_time = $9, duration_ms = $10,
			error_message = $11, updated_at = $12
		WHERE id = $1`,
		b.ID.String(), string(b.Status), b.TotalRecords, b.Processed,
		b.Succeeded, b.Failed, b.Skipped,
		b.StartTime, b.FinishTime, b.Duration.Milliseconds(),
		b.ErrorMessage, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresBatchStore) FindByID(ctx context.Context, id domain.BatchID) (*Batch, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, id.String())
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return b, err
}

func (s *PostgresBatchStore) FindByContentHash(ctx context.Context, hash string) ([]*Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+` FROM import_batches
		WHERE content_hash = $1 ORDER BY created_at`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBatches(rows)
}

func (s *PostgresBatchStore) FindStuck(ctx context.Context, cutoff time.Time) ([]*Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+` FROM import_batches
		WHERE status = $1 AND start_time < $2 ORDER BY start_time`,
		string(BatchProcessing), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBatches(rows)
}

func collectBatches(rows pgx.Rows) ([]*Batch, error) {
	var out []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row) (*Batch, error) {
	var (
		b          Batch
		id, status string
		durationMs int64
	)
	if err := row.Scan(
		&id, &b.FileName, &b.FileType, &b.FileSize, &b.ContentHash, &status,
		&b.TotalRecords, &b.Processed, &b.Succeeded, &b.Failed, &b.Skipped,
		&b.StartTime, &b.FinishTime, &durationMs, &b.Config, &b.ErrorMessage,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseBatchID(id)
	if err != nil {
		return nil, err
	}
	b.ID = parsed
	b.Status = BatchStatus(status)
	b.Duration = time.Duration(durationMs) * time.Millisecond
	return &b, nil
}

// PostgresRecordStore persists batch records in the import_records table.
type PostgresRecordStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordStore(pool *pgxpool.Pool) *PostgresRecordStore {
	return &PostgresRecordStore{pool: pool}
}

const recordColumns = `id, batch_id, row_number, status, raw_data, processed_data,
	authentication_id, error_message, validation_errors, processing_time_ms,
	created_at, updated_at`

func (s *PostgresRecordStore) Create(ctx context.Context, r *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID.String(), r.BatchID.String(), r.RowNumber, string(r.Status),
		r.RawData, r.ProcessedData, nullableID(r.AuthenticationID),
		r.ErrorMessage, r.ValidationErrors, r.ProcessingTimeMs,
		r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *PostgresRecordStore) Update(ctx context.Context, r *Record) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE import_records SET
			status = $2, processed_data = $3, authentication_id = $4,
			error_message = $5, validation_errors = $6, processing_time_ms = $7,
			updated_at = $8
		WHERE id = $1`,
		r.ID.String(), string(r.Status), r.ProcessedData, nullableID(r.AuthenticationID),
		r.ErrorMessage, r.ValidationErrors, r.ProcessingTimeMs, r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresRecordStore) ListByBatch(ctx context.Context, batchID domain.BatchID) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM import_records
		WHERE batch_id = $1 ORDER BY row_number`, batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresRecordStore) DeleteByBatch(ctx context.Context, batchID domain.BatchID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM import_records WHERE batch_id = $1`, batchID.String())
	return err
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r              Record
		id, batchID    string
		status         string
		authID         *string
		validationErrs []string
	)
	if err := row.Scan(
		&id, &batchID, &r.RowNumber, &status, &r.RawData, &r.ProcessedData,
		&authID, &r.ErrorMessage, &validationErrs, &r.ProcessingTimeMs,
		&r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := domain.ParseRecordID(id)
	if err != nil {
		return nil, err
	}
	parsedBatch, err := domain.ParseBatchID(batchID)
	if err != nil {
		return nil, err
	}
	r.ID = parsedID
	r.BatchID = parsedBatch
	r.Status = RecordStatus(status)
	r.ValidationErrors = validationErrs
	if authID != nil {
		parsedAuth, err := domain.ParseAuthenticationID(*authID)
		if err != nil {
			return nil, err
		}
		r.AuthenticationID = parsedAuth
	}
	return &r, nil
}

func nullableID(id domain.AuthenticationID) *string {
	if id.IsNil() {
		return nil
	}
	s := id.String()
	return &s
}
