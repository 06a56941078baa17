package repositories

import (
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/models"
	"github.com/planificaia/aliada/internal/sqlite"
	"log/slog"
)

// ErrNotFound is returned when the requested class record does not exist.
var ErrNotFound = errors.NewSentinel("not found")

type ClassRecordRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewClassRecordRepository(dbs *sqlite.Database, logger *slog.Logger) *ClassRecordRepository {
	return &ClassRecordRepository{
		db:     sqlx.NewDb(dbs.ReadOnly, "sqlite3"),
		logger: logger.With("source", "ClassRecordRepository"),
	}
}

// List returns the class records, newest upload first.
func (r *ClassRecordRepository) List(ctx context.Context) ([]models.ClassRecord, error) {
	records := []models.ClassRecord{}
	stmt := `SELECT id, name, subject, duration_minutes, uploaded_on, status, rating, feedback, grade, student_count,
       objectives
FROM class_records
ORDER BY uploaded_on DESC, id DESC`
	if err := r.db.SelectContext(ctx, &records, stmt); err != nil {
		return nil, errors.Wrap(err, "select class records")
	}
	return records, nil
}

// Get returns the class record with id or ErrNotFound.
func (r *ClassRecordRepository) Get(ctx context.Context, id int64) (*models.ClassRecord, error) {
	var record models.ClassRecord
	stmt := `SELECT id, name, subject, duration_minutes, uploaded_on, status, rating, feedback, grade, student_count,
       objectives
FROM class_records
WHERE id = ?`
	if err := r.db.GetContext(ctx, &record, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get class record", slog.Int64("id", id))
		}
		return nil, errors.Wrap(err, "get class record", slog.Int64("id", id))
	}
	return &record, nil
}

// Turns returns the recorded review conversation of a class in order. Classes without one yield an empty slice.
func (r *ClassRecordRepository) Turns(ctx context.Context, classRecordID int64) ([]models.SessionTurn, error) {
	turns := []models.SessionTurn{}
	stmt := `SELECT id, class_record_id, "order", origin, text, spoken_at
FROM session_turns
WHERE class_record_id = ?
ORDER BY "order"`
	if err := r.db.SelectContext(ctx, &turns, stmt, classRecordID); err != nil {
		return nil, errors.Wrap(err, "select session turns", slog.Int64("classRecordID", classRecordID))
	}
	return turns, nil
}
