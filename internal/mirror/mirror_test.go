package mirror

import (
	"time"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
)

func testRecord(id, patientID string) appointment.Record {
	end := clinic.MustParseTimeOfDay("10:30")
	created := time.Date(2026, time.February, 16, 15, 0, 0, 0, time.UTC)
	return appointment.Record{
		ID: appointment.NewID(id),
		Appointment: appointment.Appointment{
			PatientID:       patientID,
			PatientName:     "Laura Gómez",
			Email:           "laura@example.com",
			Phone:           "3001234567",
			Date:            clinic.MustParseDate("02/03/2026"),
			Start:           clinic.MustParseTimeOfDay("10:00"),
			End:             &end,
			DurationMinutes: 30,
			ServiceLabel:    "Profilaxis",
			Practitioner:    "Dra. Zaira de Oro Romeo",
			Status:          appointment.StatusScheduled,
			LastAction:      appointment.ActionBooked,
			CreatedAt:       created,
			UpdatedAt:       created,
		},
	}
}
