package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-self-booking/internal/app"
	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
	"github.com/hackgods/clinic-self-booking/internal/config"
	"github.com/hackgods/clinic-self-booking/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)
	log.Info().Str("ledger", cfg.LedgerBackend).Msg("seed starting")

	count := getInt("SEED_COUNT", 40)
	days := getInt("SEED_DAYS", 30)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	application, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	booked, err := seedAppointments(ctx, application.Service, cfg.Location(), count, days, log)
	if err != nil {
		log.Error().Err(err).Int("booked", booked).Msg("seed failed")
		return
	}
	log.Info().Int("booked", booked).Msg("seed complete")
}

// seedAppointments books up to count appointments for fake patients on random
// free slots within the next days, going through the same checks as the API.
func seedAppointments(ctx context.Context, svc *appointment.Service, loc *time.Location, count, days int, log zerolog.Logger) (int, error) {
	catalog := svc.Catalog()
	practitioners := catalog.Practitioners()
	if len(practitioners) == 0 {
		return 0, errors.New("catalogue has no practitioners")
	}

	from := clinic.DateOf(time.Now().In(loc)).AddDays(1)
	to := from.AddDays(days)

	booked := 0
	for attempt := 0; booked < count && attempt < count*5; attempt++ {
		p := practitioners[rand.Intn(len(practitioners))]
		dates, err := svc.BookableDates(from.String(), to.String(), p.ID)
		if err != nil {
			return booked, err
		}
		services := catalog.ServicesFor(p.ID)
		if len(dates) == 0 || len(services) == 0 {
			continue
		}

		date := dates[rand.Intn(len(dates))]
		svcDef := services[rand.Intn(len(services))]
		if len(svcDef.Kinds) == 0 {
			continue
		}
		kind := svcDef.Kinds[rand.Intn(len(svcDef.Kinds))]

		slots, err := svc.Availability(ctx, appointment.AvailabilityQuery{
			Date:         date.String(),
			Practitioner: p.ID,
			Duration:     kind.DurationMinutes,
		})
		if err != nil {
			return booked, err
		}
		var free []appointment.SlotAvailability
		for _, s := range slots {
			if s.Available {
				free = append(free, s)
			}
		}
		if len(free) == 0 {
			continue
		}
		slot := free[rand.Intn(len(free))]

		res, err := svc.Book(ctx, appointment.BookRequest{
			PatientID:    gofakeit.Numerify("##########"),
			Name:         gofakeit.Name(),
			Email:        gofakeit.Email(),
			Phone:        gofakeit.Phone(),
			Date:         date.String(),
			StartTime:    slot.Start.String(),
			Duration:     kind.DurationMinutes,
			ServiceLabel: svcDef.Name + " - " + kind.Name,
			Practitioner: p.ID,
		})
		var cerr *appointment.ConflictError
		switch {
		case errors.As(err, &cerr):
			continue
		case err != nil:
			return booked, err
		}

		booked++
		if booked%10 == 0 {
			log.Info().Int("booked", booked).Int("target", count).Str("last_id", res.Record.ID.String()).Msg("seeding")
		}
	}
	return booked, nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
