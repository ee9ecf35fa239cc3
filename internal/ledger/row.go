package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

// Columns is the fixed row layout shared by every adapter, A through N.
var Columns = []string{
	"patientId", "name", "email", "phone", "date", "startTime",
	"lifecycleState", "lastAction", "serviceLabel", "endTime",
	"durationMinutes", "practitionerName", "createdAt", "updatedAt",
}

const (
	colPatientID = iota
	colName
	colEmail
	colPhone
	colDate
	colStart
	colState
	colAction
	colService
	colEnd
	colDuration
	colPractitioner
	colCreatedAt
	colUpdatedAt
	numColumns
)

// FirstRow is the position of the first record; row 1 holds the header.
const FirstRow = 2

const timestampLayout = "2006-01-02T15:04:05.000Z"

// State and action cells keep the vocabulary already present in the clinic's sheet.
var (
	stateCells = map[appointment.Status]string{
		appointment.StatusScheduled:   "Activa",
		appointment.StatusRescheduled: "Reagendada",
		appointment.StatusCancelled:   "Cancelada",
		appointment.StatusCompleted:   "Completada",
	}
	actionCells = map[appointment.Action]string{
		appointment.ActionBooked:      "Agendamiento",
		appointment.ActionRescheduled: "Reagendamiento",
		appointment.ActionCancelled:   "Cancelacion",
	}
)

// EncodeRow renders an appointment as the fourteen ledger cells.
func EncodeRow(a appointment.Appointment) []string {
	row := make([]string, numColumns)
	row[colPatientID] = a.PatientID
	row[colName] = a.PatientName
	row[colEmail] = a.Email
	row[colPhone] = a.Phone
	row[colDate] = a.Date.String()
	row[colStart] = a.Start.String()
	row[colState] = stateCells[a.Status]
	row[colAction] = actionCells[a.LastAction]
	row[colService] = a.ServiceLabel
	if a.End != nil {
		row[colEnd] = a.End.String()
	}
	if a.DurationMinutes > 0 {
		row[colDuration] = strconv.Itoa(a.DurationMinutes)
	}
	row[colPractitioner] = a.Practitioner
	row[colCreatedAt] = formatTimestamp(a.CreatedAt)
	row[colUpdatedAt] = formatTimestamp(a.UpdatedAt)
	return row
}

// MergeRow encodes a on top of the stored cells raw. Cells whose value a leaves
// unchanged keep their stored text, including text DecodeRow could not parse.
func MergeRow(raw []string, a appointment.Appointment) []string {
	next := EncodeRow(a)
	prev := EncodeRow(DecodeRow(raw))
	for i := 0; i < len(raw) && i < numColumns; i++ {
		if next[i] == prev[i] {
			next[i] = raw[i]
		}
	}
	return next
}

// DecodeRow reads a row leniently. Short rows are padded, unpadded dates and
// hours are accepted, and cells that cannot be parsed are left at zero.
func DecodeRow(cells []string) appointment.Appointment {
	row := make([]string, numColumns)
	for i := 0; i < len(cells) && i < numColumns; i++ {
		row[i] = strings.TrimSpace(cells[i])
	}

	a := appointment.Appointment{
		PatientID:    row[colPatientID],
		PatientName:  row[colName],
		Email:        row[colEmail],
		Phone:        row[colPhone],
		ServiceLabel: row[colService],
		Practitioner: row[colPractitioner],
		Status:       parseState(row[colState]),
		LastAction:   parseAction(row[colAction]),
		CreatedAt:    parseTimestamp(row[colCreatedAt]),
		UpdatedAt:    parseTimestamp(row[colUpdatedAt]),
	}
	if d, err := clinic.ParseDate(row[colDate]); err == nil {
		a.Date = d
	}
	if t, err := clinic.ParseTimeOfDay(row[colStart]); err == nil {
		a.Start = t
	}
	if t, err := clinic.ParseTimeOfDay(row[colEnd]); err == nil {
		a.End = &t
	}
	if n, err := strconv.Atoi(row[colDuration]); err == nil && n > 0 {
		a.DurationMinutes = n
	}
	return a
}

// parseState treats an empty or unrecognised cell as scheduled, so such rows
// keep blocking their slot.
func parseState(cell string) appointment.Status {
	for status, text := range stateCells {
		if strings.EqualFold(cell, text) {
			return status
		}
	}
	if st, ok := appointment.ParseStatus(cell); ok {
		return st
	}
	return appointment.StatusScheduled
}

func parseAction(cell string) appointment.Action {
	for action, text := range actionCells {
		if strings.EqualFold(cell, text) {
			return action
		}
	}
	switch a := appointment.Action(strings.ToLower(cell)); a {
	case appointment.ActionBooked, appointment.ActionRescheduled, appointment.ActionCancelled:
		return a
	}
	return appointment.ActionBooked
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(cell string) time.Time {
	if cell == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, cell); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
