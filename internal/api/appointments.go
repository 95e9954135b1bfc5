package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/appointment"
	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
)

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.Create(r.Context(), appointment.CreateInput{
			SubjectID:           req.SubjectID,
			LocationID:          req.LocationID,
			TimeSlotID:          req.TimeSlotID,
			Type:                appointment.AppointmentType(req.AppointmentType),
			Notes:               req.Notes,
			SpecialRequirements: req.SpecialRequirements,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func getAppointmentByCodeHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.GetByConfirmationCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := queryUUID(r, "subject_id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		list, err := svc.ListForSubject(r.Context(), subjectID, queryBool(r, "include_completed"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func appointmentHistoryHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		chain, err := svc.History(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, chain)
	}
}

func rescheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req RescheduleRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		next, err := svc.Reschedule(r.Context(), id, appointment.RescheduleInput{
			NewTimeSlotID: req.NewTimeSlotID,
			Reason:        req.Reason,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, next)
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req CancelRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

// transitionHandler serves the body-less state changes: confirm, check-in,
// complete and no-show.
func transitionHandler(op func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := op(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func dailyScheduleHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := queryUUID(r, "location_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		date, err := calendar.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, r, apperr.InvalidRequest("invalid_date", err.Error()))
			return
		}

		list, err := svc.DailySchedule(r.Context(), locationID, date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
