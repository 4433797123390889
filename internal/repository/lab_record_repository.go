package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unicesmag/labcontrol/internal/models"
)

// check_in/check_out are TIME columns; lib/pq decodes those into time.Time,
// so they are read back as text to keep the HH:MM:SS form.
const labRecordColumns = `id, registered_at, lab_id, instructor_name, email, program, check_in::text AS check_in, check_out::text AS check_out, observation, incident_response`

// LabRecordRepository provides database access for lab check-in records.
type LabRecordRepository struct {
	db *sqlx.DB
}

// NewLabRecordRepository creates a new instance of LabRecordRepository.
func NewLabRecordRepository(db *sqlx.DB) *LabRecordRepository {
	return &LabRecordRepository{db: db}
}

// Create inserts a new record.
func (r *LabRecordRepository) Create(ctx context.Context, record *models.LabRecord) error {
	const query = `INSERT INTO lab_records (id, registered_at, lab_id, instructor_name, email, program, check_in, check_out, observation, incident_response) VALUES (:id, :registered_at, :lab_id, :instructor_name, :email, :program, :check_in, :check_out, :observation, :incident_response)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create lab record: %w", err)
	}
	return nil
}

// FindByID returns a record by identifier.
func (r *LabRecordRepository) FindByID(ctx context.Context, id string) (*models.LabRecord, error) {
	query := `SELECT ` + labRecordColumns + ` FROM lab_records WHERE id = $1 LIMIT 1`
	var record models.LabRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lab record by id: %w", err)
	}
	return &record, nil
}

// List returns records, optionally bounded by registration date.
func (r *LabRecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.LabRecord, error) {
	query := `SELECT ` + labRecordColumns + ` FROM lab_records`
	var args []interface{}

	if filter.Range != nil {
		query += ` WHERE registered_at >= $1 AND registered_at < $2`
		args = append(args, filter.Range.From, filter.Range.To)
	}
	if filter.NewestFirst {
		query += ` ORDER BY registered_at DESC`
	}

	records := make([]models.LabRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list lab records: %w", err)
	}
	return records, nil
}

// UpdateReturningPrevious rewrites every column of the record and returns the
// incident response stored before the update. The read and the write share a
// transaction so the returned value is the one actually replaced.
func (r *LabRecordRepository) UpdateReturningPrevious(ctx context.Context, record *models.LabRecord) (previous *string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update lab record: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const selectQuery = `SELECT incident_response FROM lab_records WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &previous, selectQuery, record.ID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load previous incident response: %w", err)
	}

	const updateQuery = `UPDATE lab_records SET registered_at = :registered_at, lab_id = :lab_id, instructor_name = :instructor_name, email = :email, program = :program, check_in = :check_in, check_out = :check_out, observation = :observation, incident_response = :incident_response WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, record); err != nil {
		return nil, fmt.Errorf("update lab record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lab record update: %w", err)
	}
	return previous, nil
}

// Delete removes a record. Deleting an unknown id is not an error.
func (r *LabRecordRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lab_records WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lab record: %w", err)
	}
	return nil
}
