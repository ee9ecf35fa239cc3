package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
	redisclient "github.com/hackgods/clinic-self-booking/internal/redis"
)

func availabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		duration, _ := strconv.Atoi(q.Get("duration"))

		slots, err := svc.Availability(r.Context(), appointment.AvailabilityQuery{
			Date:         q.Get("date"),
			Practitioner: q.Get("practitioner"),
			Duration:     duration,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		res, err := svc.Book(r.Context(), appointment.BookRequest{
			PatientID:    req.PatientID,
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Date:         req.Date,
			StartTime:    req.StartTime,
			Duration:     req.Duration,
			ServiceLabel: req.ServiceLabel,
			Practitioner: req.Practitioner,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateAppointmentResponse{
			Success:       true,
			Message:       "appointment booked",
			ID:            res.Record.ID,
			MirrorEventID: res.MirrorEventID,
			Data:          &res.Record,
		})
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rec, err := svc.Reschedule(r.Context(), id, appointment.RescheduleRequest{
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "appointment rescheduled", rec)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		rec, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "appointment cancelled", rec)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "", rec)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		recs, err := svc.List(r.Context(), appointment.ListFilter{
			PatientID:    q.Get("patientId"),
			Date:         q.Get("date"),
			Practitioner: q.Get("practitioner"),
			Status:       q.Get("status"),
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "", recs)
	}
}

func activeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.ActiveForPatient(r.Context(), r.URL.Query().Get("patientId"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "", rec)
	}
}

func practitionersHandler(catalog *clinic.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, "", catalog.Practitioners())
	}
}

func servicesHandler(catalog *clinic.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(r.URL.Query().Get("practitioner"))
		if ref == "" {
			writeData(w, http.StatusOK, "", catalog.Services())
			return
		}

		p, err := catalog.Practitioner(ref)
		if err != nil {
			writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
			return
		}
		writeData(w, http.StatusOK, "", catalog.ServicesFor(p.ID))
	}
}

func bookableDatesHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		dates, err := svc.BookableDates(q.Get("from"), q.Get("to"), q.Get("practitioner"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeData(w, http.StatusOK, "", dates)
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (appointment.ID, bool) {
	id, err := appointment.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
		return appointment.ID{}, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *appointment.ValidationError
	var cerr *appointment.ConflictError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.As(err, &cerr):
		writeError(w, http.StatusConflict, "conflict", cerr.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", appointment.ErrAppointmentNotFound.Error())
	case errors.Is(err, appointment.ErrLedgerUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("ledger unavailable")
		writeError(w, http.StatusServiceUnavailable, "ledger_unavailable", "appointments are temporarily unavailable, please retry")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
