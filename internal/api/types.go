package api

import (
	"encoding/json"
	"net/http"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
)

type CreateAppointmentRequest struct {
	PatientID    string `json:"patientId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	Duration     int    `json:"duration"`
	ServiceLabel string `json:"serviceLabel"`
	Practitioner string `json:"practitioner"`
}

type RescheduleAppointmentRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime,omitempty"`
}

type CreateAppointmentResponse struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message"`
	ID            appointment.ID      `json:"id"`
	MirrorEventID string              `json:"mirrorEventId,omitempty"`
	Data          *appointment.Record `json:"data,omitempty"`
}

// Envelope wraps every successful response other than a booking.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
