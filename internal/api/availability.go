package api

import (
	"net/http"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/availability"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
)

func checkAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		q, err := req.toQuery()
		if err != nil {
			writeError(w, r, err)
			return
		}

		res, err := svc.Find(r.Context(), q)
		if err != nil {
			writeError(w, r, err)
			return
		}

		alternatives := make(map[string][]SlotResponse, len(res.Alternatives))
		for date, ss := range res.Alternatives {
			alternatives[date] = toSlotResponses(ss)
		}
		writeJSON(w, http.StatusOK, AvailabilityResponse{
			LocationID:       res.Location.ID,
			LocationName:     res.Location.Name,
			RequestedDate:    calendar.FormatDate(res.RequestedDate),
			AvailableSlots:   toSlotResponses(res.Preferred),
			AlternativeDates: alternatives,
			TotalAvailable:   res.Total,
		})
	}
}

func (req AvailabilityRequest) toQuery() (availability.Query, error) {
	preferred, err := calendar.ParseDate(req.PreferredDate)
	if err != nil {
		return availability.Query{}, apperr.InvalidRequest("invalid_date", err.Error())
	}

	q := availability.Query{LocationID: req.LocationID, PreferredDate: preferred}
	for _, raw := range req.AlternativeDates {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			return availability.Query{}, apperr.InvalidRequest("invalid_date", err.Error())
		}
		q.AlternativeDates = append(q.AlternativeDates, d)
	}
	if tr := req.PreferredTimeRange; tr != nil {
		q.Window = &slot.Window{Start: tr.Start, End: tr.End}
	}
	return q, nil
}

func locationSlotsHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		date, err := calendar.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, r, apperr.InvalidRequest("invalid_date", err.Error()))
			return
		}

		slots, err := svc.DaySlots(r.Context(), id, date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}
