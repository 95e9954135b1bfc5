package api

import (
	"net/http"

	"github.com/hackgods/passport-office-scheduling/internal/location"
)

func listLocationsHandler(svc LocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locs, err := svc.List(r.Context(), !queryBool(r, "include_inactive"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if locs == nil {
			locs = []location.Location{}
		}
		writeJSON(w, http.StatusOK, locs)
	}
}

func getLocationHandler(svc LocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		loc, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loc)
	}
}

// Location bodies are validated by the registry against the merged record,
// so these handlers only decode.
func createLocationHandler(svc LocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in location.CreateInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}

		loc, err := svc.Create(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, loc)
	}
}

func updateLocationHandler(svc LocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var in location.UpdateInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}

		loc, err := svc.Update(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loc)
	}
}

func deactivateLocationHandler(svc LocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		loc, err := svc.Deactivate(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loc)
	}
}
