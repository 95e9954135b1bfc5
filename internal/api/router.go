package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/appointment"
	"github.com/hackgods/passport-office-scheduling/internal/availability"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/metrics"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
)

type AppointmentService interface {
	Create(ctx context.Context, in appointment.CreateInput) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetByConfirmationCode(ctx context.Context, code string) (*appointment.Appointment, error)
	ListForSubject(ctx context.Context, subjectID uuid.UUID, includeCompleted bool) ([]appointment.Appointment, error)
	History(ctx context.Context, id uuid.UUID) ([]appointment.Appointment, error)
	DailySchedule(ctx context.Context, locationID uuid.UUID, date time.Time) ([]appointment.Appointment, error)

	Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, in appointment.RescheduleInput) (*appointment.Appointment, error)
}

type AvailabilityService interface {
	Find(ctx context.Context, q availability.Query) (*availability.Result, error)
	DaySlots(ctx context.Context, locationID uuid.UUID, date time.Time) ([]slot.TimeSlot, error)
}

type LocationService interface {
	Get(ctx context.Context, id uuid.UUID) (*location.Location, error)
	List(ctx context.Context, activeOnly bool) ([]location.Location, error)
	Create(ctx context.Context, in location.CreateInput) (*location.Location, error)
	Update(ctx context.Context, id uuid.UUID, in location.UpdateInput) (*location.Location, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*location.Location, error)
}

type SlotAdmin interface {
	Block(ctx context.Context, id uuid.UUID, reason string) (*slot.TimeSlot, error)
	Unblock(ctx context.Context, id uuid.UUID) (*slot.TimeSlot, error)
}

type SlotPrewarmer interface {
	Location(ctx context.Context, id uuid.UUID, days int) (int, error)
	All(ctx context.Context, days int) (int, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Availability AvailabilityService
	Locations    LocationService
	Slots        SlotAdmin
	Prewarmer    SlotPrewarmer

	Health         *HealthHandler
	Metrics        *metrics.SchedulingMetrics
	MetricsHandler http.Handler
	Log            *logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log, cfg.Metrics))
	r.Use(middleware.Recoverer)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	appts := cfg.Appointments
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(appts))
		r.Get("/", listAppointmentsHandler(appts))
		r.Get("/code/{code}", getAppointmentByCodeHandler(appts))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getAppointmentHandler(appts))
			r.Get("/history", appointmentHistoryHandler(appts))
			r.Put("/reschedule", rescheduleAppointmentHandler(appts))
			r.Delete("/cancel", cancelAppointmentHandler(appts))
			r.Post("/confirm", transitionHandler(appts.Confirm))
			r.Post("/check-in", transitionHandler(appts.CheckIn))
			r.Post("/complete", transitionHandler(appts.Complete))
			r.Post("/no-show", transitionHandler(appts.MarkNoShow))
		})
	})

	r.Post("/availability/check", checkAvailabilityHandler(cfg.Availability))
	r.Get("/officer/daily-schedule", dailyScheduleHandler(appts))

	r.Route("/locations", func(r chi.Router) {
		r.Get("/", listLocationsHandler(cfg.Locations))
		r.Post("/", createLocationHandler(cfg.Locations))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getLocationHandler(cfg.Locations))
			r.Patch("/", updateLocationHandler(cfg.Locations))
			r.Post("/deactivate", deactivateLocationHandler(cfg.Locations))
			r.Get("/slots", locationSlotsHandler(cfg.Availability))
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/generate-slots", generateSlotsHandler(cfg.Prewarmer))
		r.Post("/slots/{id}/block", blockSlotHandler(cfg.Slots))
		r.Post("/slots/{id}/unblock", unblockSlotHandler(cfg.Slots))
	})

	return r
}
