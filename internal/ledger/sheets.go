package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

const lastColumn = "N"

// SheetsLedger stores appointments as rows of a Google Sheets tab. The row
// number is the record's identity.
type SheetsLedger struct {
	srv           *sheets.Service
	spreadsheetID string
	sheet         string
}

func NewSheetsLedger(ctx context.Context, spreadsheetID, sheet string, opts ...option.ClientOption) (*SheetsLedger, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if sheet == "" {
		sheet = "Citas"
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsLedger{srv: srv, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (l *SheetsLedger) Append(ctx context.Context, appt appointment.Appointment) (appointment.ID, error) {
	vr := &sheets.ValueRange{Values: [][]interface{}{cells(EncodeRow(appt))}}

	resp, err := l.srv.Spreadsheets.Values.
		Append(l.spreadsheetID, l.a1("A", 0, lastColumn, 0), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return appointment.ID{}, fmt.Errorf("append row: %w", err)
	}
	if resp.Updates == nil {
		return appointment.ID{}, errors.New("append row: response has no updated range")
	}
	row, err := firstRowOf(resp.Updates.UpdatedRange)
	if err != nil {
		return appointment.ID{}, fmt.Errorf("append row: %w", err)
	}
	return idOf(row), nil
}

func (l *SheetsLedger) ReadRange(ctx context.Context, from, to appointment.ID) ([]appointment.Record, error) {
	start, end, err := bounds(from, to)
	if err != nil {
		return nil, err
	}

	vr, err := l.srv.Spreadsheets.Values.
		Get(l.spreadsheetID, l.a1("A", start, lastColumn, end)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	if !from.IsZero() && len(vr.Values) == 0 {
		return nil, fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, start)
	}

	out := make([]appointment.Record, 0, len(vr.Values))
	for i, raw := range vr.Values {
		row := cellStrings(raw)
		if blank(row) {
			continue
		}
		out = append(out, appointment.Record{
			ID:          idOf(start + i),
			Appointment: DecodeRow(row),
		})
	}
	return out, nil
}

// UpdateRange rewrites rows from..to. Every row must already exist. Cells the
// new values leave unchanged are written back exactly as read.
func (l *SheetsLedger) UpdateRange(ctx context.Context, from, to appointment.ID, appts []appointment.Appointment) error {
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

	existing, err := l.srv.Spreadsheets.Values.
		Get(l.spreadsheetID, l.a1("A", start, lastColumn, end)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	if len(existing.Values) != len(appts) {
		return fmt.Errorf("%w: rows %d..%d", appointment.ErrAppointmentNotFound, start, end)
	}

	values := make([][]interface{}, 0, len(appts))
	for i, a := range appts {
		raw := cellStrings(existing.Values[i])
		if blank(raw) {
			return fmt.Errorf("%w: row %d", appointment.ErrAppointmentNotFound, start+i)
		}
		values = append(values, cells(MergeRow(raw, a)))
	}
	_, err = l.srv.Spreadsheets.Values.
		Update(l.spreadsheetID, l.a1("A", start, lastColumn, end), &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update rows: %w", err)
	}
	return nil
}

// Ping checks the spreadsheet is reachable with the configured credentials.
func (l *SheetsLedger) Ping(ctx context.Context) error {
	_, err := l.srv.Spreadsheets.Get(l.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("spreadsheet %s not found", l.spreadsheetID)
	}
	return err
}

// a1 builds "Sheet!A2:N9". A zero row leaves that side unbounded.
func (l *SheetsLedger) a1(fromCol string, fromRow int, toCol string, toRow int) string {
	ref := fmt.Sprintf("%s!%s", l.sheet, fromCol)
	if fromRow > 0 {
		ref += strconv.Itoa(fromRow)
	}
	ref += ":" + toCol
	if toRow > 0 {
		ref += strconv.Itoa(toRow)
	}
	return ref
}

var updatedRangeRow = regexp.MustCompile(`![A-Z]+(\d+)`)

func firstRowOf(updatedRange string) (int, error) {
	m := updatedRangeRow.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0, fmt.Errorf("unexpected updated range %q", updatedRange)
	}
	return strconv.Atoi(m[1])
}

func cells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

func cellStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, c := range raw {
		if c != nil {
			out[i] = fmt.Sprint(c)
		}
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
