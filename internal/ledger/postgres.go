package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

// DB is the subset of pgxpool.Pool the ledger needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresLedger keeps the sheet's row layout in a table whose identity column
// plays the role of the row number.
type PostgresLedger struct {
	db DB
}

func NewPostgresLedger(db DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const ledgerColumns = `patient_id, name, email, phone, date, start_time, lifecycle_state,
		last_action, service_label, end_time, duration_minutes, practitioner_name,
		created_at, updated_at`

// Helpers

func scanCells(row pgx.Row) (int, []string, error) {
	var position int64
	cells := make([]string, numColumns)
	dest := []any{&position}
	for i := range cells {
		dest = append(dest, &cells[i])
	}
	if err := row.Scan(dest...); err != nil {
		return 0, nil, err
	}
	return int(position), cells, nil
}

func scanRecord(row pgx.Row) (appointment.Record, error) {
	position, cells, err := scanCells(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Record{}, appointment.ErrAppointmentNotFound
		}
		return appointment.Record{}, err
	}

	return appointment.Record{
		ID:          idOf(position),
		Appointment: DecodeRow(cells),
	}, nil
}

func cellArgs(row []string) []any {
	args := make([]any, len(row))
	for i, c := range row {
		args[i] = c
	}
	return args
}

func rowArgs(a appointment.Appointment) []any {
	return cellArgs(EncodeRow(a))
}

// lockRows reads the stored cells of rows start..end and locks them until tx ends.
func lockRows(ctx context.Context, tx pgx.Tx, start, end int) (map[int][]string, error) {
	rows, err := tx.Query(ctx, `
		SELECT position, `+ledgerColumns+`
		FROM appointment_ledger
		WHERE position BETWEEN $1 AND $2
		ORDER BY position
		FOR UPDATE
	`, int64(start), int64(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stored := make(map[int][]string, end-start+1)
	for rows.Next() {
		position, cells, err := scanCells(rows)
		if err != nil {
			return nil, err
		}
		stored[position] = cells
	}
	return stored, rows.Err()
}

// Ledger methods

func (l *PostgresLedger) Append(ctx context.Context, appt appointment.Appointment) (appointment.ID, error) {
	var position int64
	err := l.db.QueryRow(ctx, `
		INSERT INTO appointment_ledger (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING position
	`, rowArgs(appt)...).Scan(&position)
	if err != nil {
		return appointment.ID{}, fmt.Errorf("insert ledger row: %w", err)
	}
	return idOf(int(position)), nil
}

func (l *PostgresLedger) ReadRange(ctx context.Context, from, to appointment.ID) ([]appointment.Record, error) {
	start, end, err := bounds(from, to)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.Query(ctx, `
		SELECT position, `+ledgerColumns+`
		FROM appointment_ledger
		WHERE position >= $1
		  AND ($2 = 0 OR position <= $2)
		ORDER BY position
	`, int64(start), int64(end))
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var result []appointment.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}

	if !from.IsZero() && len(result) == 0 {
		return nil, fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, start)
	}
	return result, nil
}

// UpdateRange rewrites rows from..to in one transaction, keeping the stored
// text of every column the new values leave unchanged.
func (l *PostgresLedger) UpdateRange(ctx context.Context, from, to appointment.ID, appts []appointment.Appointment) error {
	if from.IsZero() || to.IsZero() {
		return errors.New("update needs a closed range")
	}
	start, end, err := bounds(from, to)
	if err != nil {
		return err
	}
	if len(appts) != end-start+1 {
		return fmt.Errorf("update of rows %d..%d needs %d appointments, got %d", start, end, end-start+1, len(appts))
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger update: %w", err)
	}

	stored, err := lockRows(ctx, tx, start, end)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("read ledger rows %d..%d: %w", start, end, err)
	}

	for i, a := range appts {
		raw, ok := stored[start+i]
		if !ok {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, start+i)
		}
		args := append([]any{int64(start + i)}, cellArgs(MergeRow(raw, a))...)
		tag, err := tx.Exec(ctx, `
			UPDATE appointment_ledger
			SET patient_id = $2, name = $3, email = $4, phone = $5, date = $6,
			    start_time = $7, lifecycle_state = $8, last_action = $9,
			    service_label = $10, end_time = $11, duration_minutes = $12,
			    practitioner_name = $13, created_at = $14, updated_at = $15
			WHERE position = $1
		`, args...)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("update ledger row %d: %w", start+i, err)
		}
		if tag.RowsAffected() == 0 {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, start+i)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger update: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Ping(ctx context.Context) error {
	var one int
	return l.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}
