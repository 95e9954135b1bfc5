package api

import (
	"net/http"
)

const defaultDaysAhead = 14

func generateSlotsHandler(svc SlotPrewarmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateSlotsRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.DaysAhead == 0 {
			req.DaysAhead = defaultDaysAhead
		}

		var (
			n   int
			err error
		)
		if req.LocationID != nil {
			n, err = svc.Location(r.Context(), *req.LocationID, req.DaysAhead)
		} else {
			n, err = svc.All(r.Context(), req.DaysAhead)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, GenerateSlotsResponse{SlotsCreated: n})
	}
}

func blockSlotHandler(svc SlotAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req BlockSlotRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		ts, err := svc.Block(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ts)
	}
}

func unblockSlotHandler(svc SlotAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		ts, err := svc.Unblock(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ts)
	}
}
