package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

var pgColumns = []string{
	"position", "patient_id", "name", "email", "phone", "date", "start_time",
	"lifecycle_state", "last_action", "service_label", "end_time",
	"duration_minutes", "practitioner_name", "created_at", "updated_at",
}

func newMockLedger(t *testing.T) (pgxmock.PgxPoolIface, *PostgresLedger) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresLedger(mock)
}

func ledgerRow(position int64, a appointment.Appointment) []any {
	return append([]any{position}, rowArgs(a)...)
}

func TestPostgresLedgerAppend(t *testing.T) {
	mock, l := newMockLedger(t)
	a := sampleAppointment()

	mock.ExpectQuery("INSERT INTO appointment_ledger").
		WithArgs(rowArgs(a)...).
		WillReturnRows(pgxmock.NewRows([]string{"position"}).AddRow(int64(7)))

	id, err := l.Append(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "7", id.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerAppendError(t *testing.T) {
	mock, l := newMockLedger(t)

	mock.ExpectQuery("INSERT INTO appointment_ledger").
		WithArgs(rowArgs(sampleAppointment())...).
		WillReturnError(errors.New("connection reset"))

	_, err := l.Append(context.Background(), sampleAppointment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert ledger row")
}

func TestPostgresLedgerReadRange(t *testing.T) {
	mock, l := newMockLedger(t)
	a := sampleAppointment()
	b := sampleAppointment()
	b.PatientID = "555"
	b.Status = appointment.StatusCancelled

	mock.ExpectQuery("FROM appointment_ledger").
		WithArgs(int64(2), int64(0)).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow(ledgerRow(2, a)...).
			AddRow(ledgerRow(3, b)...))

	recs, err := l.ReadRange(context.Background(), appointment.ID{}, appointment.ID{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID.String())
	assert.Equal(t, a, recs[0].Appointment)
	assert.Equal(t, appointment.StatusCancelled, recs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerReadMissing(t *testing.T) {
	mock, l := newMockLedger(t)

	mock.ExpectQuery("FROM appointment_ledger").
		WithArgs(int64(9), int64(9)).
		WillReturnRows(pgxmock.NewRows(pgColumns))

	id := appointment.NewID("9")
	_, err := l.ReadRange(context.Background(), id, id)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestPostgresLedgerUpdateRange(t *testing.T) {
	mock, l := newMockLedger(t)
	a := sampleAppointment()
	a.Status = appointment.StatusCancelled
	a.LastAction = appointment.ActionCancelled

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(4), int64(4)).
		WillReturnRows(pgxmock.NewRows(pgColumns).AddRow(ledgerRow(4, sampleAppointment())...))
	mock.ExpectExec("UPDATE appointment_ledger").
		WithArgs(ledgerRow(4, a)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	id := appointment.NewID("4")
	require.NoError(t, l.UpdateRange(context.Background(), id, id, []appointment.Appointment{a}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerUpdateKeepsUnparsedCells(t *testing.T) {
	mock, l := newMockLedger(t)
	stored := EncodeRow(sampleAppointment())
	stored[colDuration] = "60 min"
	stored[colCreatedAt] = "12/02/2026 10:00:00"

	next, err := appointment.Cancel(DecodeRow(stored), sampleAppointment().UpdatedAt)
	require.NoError(t, err)

	want := append([]string(nil), stored...)
	want[colState], want[colAction] = "Cancelada", "Cancelacion"

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(4), int64(4)).
		WillReturnRows(pgxmock.NewRows(pgColumns).AddRow(append([]any{int64(4)}, cellArgs(stored)...)...))
	mock.ExpectExec("UPDATE appointment_ledger").
		WithArgs(append([]any{int64(4)}, cellArgs(want)...)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	id := appointment.NewID("4")
	require.NoError(t, l.UpdateRange(context.Background(), id, id, []appointment.Appointment{next}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerUpdateMissingRowRollsBack(t *testing.T) {
	mock, l := newMockLedger(t)
	a := sampleAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(4), int64(4)).
		WillReturnRows(pgxmock.NewRows(pgColumns))
	mock.ExpectRollback()

	id := appointment.NewID("4")
	err := l.UpdateRange(context.Background(), id, id, []appointment.Appointment{a})
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerPing(t *testing.T) {
	mock, l := newMockLedger(t)
	mock.ExpectQuery("SELECT 1").WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, l.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
