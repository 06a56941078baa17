package sqlite

import (
	"context"
	"github.com/planificaia/aliada/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := testhelpers.NewLogger(io.Discard)

	db, err := NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	count := func(table string) int {
		var n int
		require.NoError(t, db.ReadOnly.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n))
		return n
	}
	require.Equal(t, 5, count("class_records"))
	require.Equal(t, 4, count("session_turns"))

	// Restarting against the same data is a no-op.
	require.NoError(t, db.migrateTo(ctx, schemaDefinition))
	_, err = db.ReadWrite.ExecContext(ctx, fixtures)
	require.NoError(t, err)
	require.Equal(t, 5, count("class_records"))
	require.Equal(t, 4, count("session_turns"))

	// The read-only pool rejects writes.
	_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM class_records")
	require.Error(t, err)

	// Foreign keys are enforced after the migration.
	_, err = db.ReadWrite.ExecContext(ctx,
		`INSERT INTO session_turns (class_record_id, "order", origin, text, spoken_at) VALUES (99, 0, 'user', 'x', '10:00')`)
	require.Error(t, err)
}
