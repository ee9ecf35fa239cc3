package appointment

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-self-booking/internal/clinic"
	"github.com/hackgods/clinic-self-booking/internal/metrics"
	redisclient "github.com/hackgods/clinic-self-booking/internal/redis"
)

const defaultLedgerTimeout = 10 * time.Second

type ChangeKind string

const (
	ChangeBooked      ChangeKind = "booked"
	ChangeRescheduled ChangeKind = "rescheduled"
	ChangeCancelled   ChangeKind = "cancelled"
)

// Change describes a committed ledger mutation for the secondary mirrors.
type Change struct {
	Kind     ChangeKind
	Record   Record
	Previous *Appointment
}

// Publisher hands committed changes to the mirrors. Publish must not block.
type Publisher interface {
	Publish(change Change)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Change) {}

type Deps struct {
	Ledger    Ledger
	Catalog   *clinic.Catalog
	Policy    *clinic.Policy
	Engine    *Engine
	Locker    redisclient.Locker
	Publisher Publisher
	Metrics   *metrics.BookingMetrics
	Logger    zerolog.Logger
	Now       func() time.Time

	// LedgerTimeout bounds ledger writes, which run detached from request
	// cancellation so a committed booking is never abandoned halfway.
	LedgerTimeout time.Duration
	// CalendarEvents reports whether booked appointments get a calendar event,
	// in which case BookingResult carries its id.
	CalendarEvents bool
}

type Service struct {
	ledger         Ledger
	catalog        *clinic.Catalog
	policy         *clinic.Policy
	engine         *Engine
	locker         redisclient.Locker
	publisher      Publisher
	metrics        *metrics.BookingMetrics
	log            zerolog.Logger
	now            func() time.Time
	ledgerTimeout  time.Duration
	calendarEvents bool
}

func NewService(d Deps) *Service {
	s := &Service{
		ledger:         d.Ledger,
		catalog:        d.Catalog,
		policy:         d.Policy,
		engine:         d.Engine,
		locker:         d.Locker,
		publisher:      d.Publisher,
		metrics:        d.Metrics,
		log:            d.Logger,
		now:            d.Now,
		ledgerTimeout:  d.LedgerTimeout,
		calendarEvents: d.CalendarEvents,
	}
	if s.locker == nil {
		s.locker = redisclient.NewLocalLocker()
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ledgerTimeout <= 0 {
		s.ledgerTimeout = defaultLedgerTimeout
	}
	return s
}

func (s *Service) Catalog() *clinic.Catalog { return s.catalog }

type AvailabilityQuery struct {
	Date         string
	Practitioner string
	Duration     int
}

// Availability computes the slot list from a fresh ledger snapshot. A date the
// calendar policy rejects yields every slot unavailable.
func (s *Service) Availability(ctx context.Context, q AvailabilityQuery) ([]SlotAvailability, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveAvailability(time.Since(started)) }()

	fields := map[string]string{}
	date, err := clinic.ParseDate(q.Date)
	if err != nil {
		fields["date"] = "must be DD/MM/YYYY"
	}
	if !clinic.SupportsDuration(q.Duration) {
		fields["duration"] = fmt.Sprintf("must be one of %v", clinic.SupportedDurations)
	}
	practitioner, err := s.catalog.Practitioner(q.Practitioner)
	if err != nil {
		fields["practitioner"] = "unknown practitioner"
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	if err := s.policy.Check(date, practitioner.ID); err != nil {
		slots := s.engine.Compute(date, practitioner, q.Duration, nil)
		for i := range slots {
			slots[i].Available = false
		}
		return slots, nil
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Compute(date, practitioner, q.Duration, snapshot), nil
}

type BookRequest struct {
	PatientID    string
	Name         string
	Email        string
	Phone        string
	Date         string
	StartTime    string
	Duration     int
	ServiceLabel string
	Practitioner string
}

type BookingResult struct {
	Record        Record
	MirrorEventID string
}

// Book validates the request, then re-derives availability under the booking
// lock before appending the appointment to the ledger.
func (s *Service) Book(ctx context.Context, req BookRequest) (*BookingResult, error) {
	res, err := s.book(ctx, req)
	s.metrics.ObserveOperation("book", outcome(err))
	return res, err
}

func (s *Service) book(ctx context.Context, req BookRequest) (*BookingResult, error) {
	// Validate required fields
	fields := map[string]string{}
	required := map[string]string{
		"patientId":    req.PatientID,
		"name":         req.Name,
		"email":        req.Email,
		"phone":        req.Phone,
		"date":         req.Date,
		"startTime":    req.StartTime,
		"serviceLabel": req.ServiceLabel,
		"practitioner": req.Practitioner,
	}
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			fields[name] = "is required"
		}
	}
	if req.Duration == 0 {
		fields["duration"] = "is required"
	} else if !clinic.SupportsDuration(req.Duration) {
		fields["duration"] = fmt.Sprintf("must be one of %v", clinic.SupportedDurations)
	}
	if _, ok := fields["email"]; !ok {
		if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
			fields["email"] = "is not a valid address"
		}
	}

	date, err := clinic.ParseDate(req.Date)
	if err != nil && fields["date"] == "" {
		fields["date"] = "must be DD/MM/YYYY"
	}
	start, err := clinic.ParseTimeOfDay(req.StartTime)
	if err != nil && fields["startTime"] == "" {
		fields["startTime"] = "must be HH:MM"
	}
	practitioner, err := s.catalog.Practitioner(req.Practitioner)
	if err != nil && fields["practitioner"] == "" {
		fields["practitioner"] = "unknown practitioner"
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	if err := s.policy.Check(date, practitioner.ID); err != nil {
		return nil, invalidField("date", err)
	}
	if err := s.precheckSlot(start, req.Duration); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	appt := Appointment{
		PatientID:       strings.TrimSpace(req.PatientID),
		PatientName:     strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		Date:            date,
		Start:           start,
		End:             endOf(start, req.Duration),
		DurationMinutes: req.Duration,
		ServiceLabel:    strings.TrimSpace(req.ServiceLabel),
		Practitioner:    practitioner.Name,
		Status:          StatusScheduled,
		LastAction:      ActionBooked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var created Record
	err = s.locker.WithLock(ctx, lockKey(practitioner, date), func(lockCtx context.Context) error {
		// Inside the critical section re-derive availability from a fresh snapshot
		snapshot, err := s.lockedSnapshot(lockCtx)
		if err != nil {
			return err
		}
		for _, r := range snapshot {
			if r.Status.IsActive() && r.PatientID == appt.PatientID {
				return conflict(ErrPatientHasActive)
			}
		}
		if err := s.engine.CheckSlot(date, practitioner, start, req.Duration, snapshot, ID{}); err != nil {
			return conflict(err)
		}

		writeCtx, cancel := s.writeContext(lockCtx)
		defer cancel()
		id, err := s.ledger.Append(writeCtx, appt)
		if err != nil {
			return fmt.Errorf("append appointment: %w", ledgerErr(err))
		}
		created = Record{ID: id, Appointment: appt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("id", created.ID.String()).
		Str("practitioner", practitioner.ID).
		Str("date", date.String()).
		Str("start", start.String()).
		Int("duration", req.Duration).
		Msg("appointment booked")

	s.publisher.Publish(Change{Kind: ChangeBooked, Record: created})

	res := &BookingResult{Record: created}
	if s.calendarEvents {
		res.MirrorEventID = created.MirrorKey()
	}
	return res, nil
}

type RescheduleRequest struct {
	Date      string
	StartTime string
	// EndTime optionally overrides the end derived from the original duration.
	EndTime string
}

// Reschedule moves an active appointment to a new date and start, keeping its
// duration and every patient and service field.
func (s *Service) Reschedule(ctx context.Context, id ID, req RescheduleRequest) (*Record, error) {
	rec, err := s.reschedule(ctx, id, req)
	s.metrics.ObserveOperation("reschedule", outcome(err))
	return rec, err
}

func (s *Service) reschedule(ctx context.Context, id ID, req RescheduleRequest) (*Record, error) {
	fields := map[string]string{}
	date, err := clinic.ParseDate(req.Date)
	if err != nil {
		fields["date"] = "must be DD/MM/YYYY"
	}
	start, err := clinic.ParseTimeOfDay(req.StartTime)
	if err != nil {
		fields["startTime"] = "must be HH:MM"
	}
	var end *clinic.TimeOfDay
	if strings.TrimSpace(req.EndTime) != "" {
		e, err := clinic.ParseTimeOfDay(req.EndTime)
		switch {
		case err != nil:
			fields["endTime"] = "must be HH:MM"
		case e <= start:
			fields["endTime"] = "must be after startTime"
		default:
			end = &e
		}
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	var updated Record
	var previous Appointment
	err = s.locker.WithLock(ctx, recordLockKey(id), func(recCtx context.Context) error {
		current, err := s.read(recCtx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(StatusRescheduled) {
			return fmt.Errorf("%w: %s appointment cannot be rescheduled", ErrInvalidTransition, current.Status)
		}

		practitioner := s.practitionerOf(current.Appointment)
		duration := current.BookedDuration(s.engine.FallbackDuration())
		if end != nil {
			duration = int(*end - start)
		}

		if err := s.policy.Check(date, practitioner.ID); err != nil {
			return invalidField("date", err)
		}
		if err := s.precheckSlot(start, duration); err != nil {
			return err
		}

		return s.locker.WithLock(recCtx, lockKey(practitioner, date), func(lockCtx context.Context) error {
			snapshot, err := s.lockedSnapshot(lockCtx)
			if err != nil {
				return err
			}
			rec, ok := find(snapshot, current.ID)
			if !ok {
				return ErrAppointmentNotFound
			}
			if err := s.engine.CheckSlot(date, practitioner, start, duration, snapshot, rec.ID); err != nil {
				return conflict(err)
			}

			next, err := Reschedule(rec.Appointment, date, start, end, s.engine.FallbackDuration(), s.now().UTC().Truncate(time.Millisecond))
			if err != nil {
				return err
			}

			writeCtx, cancel := s.writeContext(lockCtx)
			defer cancel()
			if err := s.ledger.UpdateRange(writeCtx, rec.ID, rec.ID, []Appointment{next}); err != nil {
				return fmt.Errorf("update appointment %s: %w", rec.ID, ledgerErr(err))
			}
			previous = rec.Appointment
			updated = Record{ID: rec.ID, Appointment: next}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("id", updated.ID.String()).
		Str("from", previous.Date.String()+" "+previous.Start.String()).
		Str("to", date.String()+" "+start.String()).
		Msg("appointment rescheduled")

	s.publisher.Publish(Change{Kind: ChangeRescheduled, Record: updated, Previous: &previous})
	return &updated, nil
}

// Cancel releases an active appointment's slot. The row stays in the ledger.
func (s *Service) Cancel(ctx context.Context, id ID) (*Record, error) {
	rec, err := s.cancel(ctx, id)
	s.metrics.ObserveOperation("cancel", outcome(err))
	return rec, err
}

func (s *Service) cancel(ctx context.Context, id ID) (*Record, error) {
	var updated Record
	var previous Appointment
	err := s.locker.WithLock(ctx, recordLockKey(id), func(recCtx context.Context) error {
		current, err := s.read(recCtx, id)
		if err != nil {
			return err
		}

		next, err := Cancel(current.Appointment, s.now().UTC().Truncate(time.Millisecond))
		if err != nil {
			return err
		}

		writeCtx, cancel := s.writeContext(recCtx)
		defer cancel()
		if err := s.ledger.UpdateRange(writeCtx, current.ID, current.ID, []Appointment{next}); err != nil {
			return fmt.Errorf("update appointment %s: %w", current.ID, ledgerErr(err))
		}
		previous = current.Appointment
		updated = Record{ID: current.ID, Appointment: next}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("id", updated.ID.String()).Msg("appointment cancelled")
	s.publisher.Publish(Change{Kind: ChangeCancelled, Record: updated, Previous: &previous})
	return &updated, nil
}

func (s *Service) Get(ctx context.Context, id ID) (*Record, error) {
	if id.IsZero() {
		return nil, ErrAppointmentNotFound
	}
	recs, err := s.ledger.ReadRange(ctx, id, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read appointment %s: %w", id, ledgerErr(err))
	}
	if len(recs) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &recs[0], nil
}

type ListFilter struct {
	PatientID    string
	Date         string
	Practitioner string
	Status       string
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Record, error) {
	fields := map[string]string{}
	var date clinic.Date
	if f.Date != "" {
		d, err := clinic.ParseDate(f.Date)
		if err != nil {
			fields["date"] = "must be DD/MM/YYYY"
		}
		date = d
	}
	var status Status
	if f.Status != "" {
		st, ok := ParseStatus(f.Status)
		if !ok {
			fields["status"] = "unknown status"
		}
		status = st
	}
	var practitioner *clinic.Practitioner
	if f.Practitioner != "" {
		if p, err := s.catalog.Practitioner(f.Practitioner); err == nil {
			practitioner = &p
		} else {
			practitioner = &clinic.Practitioner{Name: f.Practitioner}
		}
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(snapshot))
	for _, r := range snapshot {
		if f.PatientID != "" && r.PatientID != strings.TrimSpace(f.PatientID) {
			continue
		}
		if !date.IsZero() && r.Date != date {
			continue
		}
		if practitioner != nil && !practitioner.Matches(r.Practitioner) {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ActiveForPatient returns the patient's scheduled or rescheduled appointment.
func (s *Service) ActiveForPatient(ctx context.Context, patientID string) (*Record, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, newValidationError(map[string]string{"patientId": "is required"})
	}
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(snapshot) - 1; i >= 0; i-- {
		if snapshot[i].PatientID == patientID && snapshot[i].Status.IsActive() {
			return &snapshot[i], nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (s *Service) BookableDates(from, to, practitionerRef string) ([]clinic.Date, error) {
	fields := map[string]string{}
	fromDate, err := clinic.ParseDate(from)
	if err != nil {
		fields["from"] = "must be DD/MM/YYYY"
	}
	toDate, err := clinic.ParseDate(to)
	if err != nil {
		fields["to"] = "must be DD/MM/YYYY"
	}
	var practitionerID string
	if practitionerRef != "" {
		p, err := s.catalog.Practitioner(practitionerRef)
		if err != nil {
			fields["practitioner"] = "unknown practitioner"
		}
		practitionerID = p.ID
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	dates, err := s.policy.BookableDates(fromDate, toDate, practitionerID)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Err: err}
	}
	return dates, nil
}

func (s *Service) snapshot(ctx context.Context) ([]Record, error) {
	recs, err := s.ledger.ReadRange(ctx, ID{}, ID{})
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", ledgerErr(err))
	}
	return recs, nil
}

// lockedSnapshot bounds a read made while a lock is held, so the read and the
// write that follows stay within the lock's lifetime.
func (s *Service) lockedSnapshot(ctx context.Context) ([]Record, error) {
	readCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	return s.snapshot(readCtx)
}

func (s *Service) read(ctx context.Context, id ID) (*Record, error) {
	readCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	return s.Get(readCtx, id)
}

func (s *Service) precheckSlot(start clinic.TimeOfDay, duration int) error {
	slot, ok := s.engine.Grid().Lookup(start)
	if !ok {
		return invalidField("startTime", ErrNotInGrid)
	}
	if !slot.Fits(duration) {
		return conflict(ErrExceedsPeriod)
	}
	return nil
}

func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.ledgerTimeout)
}

// practitionerOf resolves the practitioner named on a row. Rows naming someone
// outside the catalog still match by name.
func (s *Service) practitionerOf(a Appointment) clinic.Practitioner {
	if p, err := s.catalog.Practitioner(a.Practitioner); err == nil {
		return p
	}
	return clinic.Practitioner{Name: a.Practitioner}
}

func lockKey(p clinic.Practitioner, date clinic.Date) string {
	ref := p.ID
	if ref == "" {
		ref = strings.ToLower(strings.TrimSpace(p.Name))
	}
	return fmt.Sprintf("booking:%s:%s", ref, date.ISO())
}

// recordLockKey serializes changes to one ledger row.
func recordLockKey(id ID) string {
	return "booking:record:" + id.String()
}

func find(recs []Record, id ID) (Record, bool) {
	for _, r := range recs {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// ledgerErr marks adapter failures as ErrLedgerUnavailable, keeping the cause.
func ledgerErr(err error) error {
	if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrLedgerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
}

func outcome(err error) string {
	var verr *ValidationError
	var cerr *ConflictError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &cerr), errors.Is(err, ErrInvalidTransition), errors.Is(err, redisclient.ErrLockNotAcquired):
		return "conflict"
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	default:
		return "error"
	}
}
