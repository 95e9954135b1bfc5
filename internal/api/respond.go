package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody = apperr.InvalidRequest("invalid_request_body", "could not parse JSON body")
	errValidation  = apperr.InvalidRequest("validation_failed", "request failed validation")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errInvalidBody.WithDetails(map[string]any{"reason": err.Error()})
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validate request", err)
	}

	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeField(fe)
	}
	return errValidation.WithDetails(fields)
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "failed " + fe.Tag()
	}
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.InvalidRequest("invalid_"+name, name+" must be a valid UUID")
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		return uuid.Nil, apperr.InvalidRequest("invalid_"+name, name+" must be a valid UUID")
	}
	return id, nil
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and the standard error body.
// Unclassified errors become 500 without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("internal server error", err)
	}

	log := logging.FromContext(r.Context(), logging.Default())
	switch e.Kind {
	case apperr.KindInternal:
		log.Error("request failed", "error", err)
	case apperr.KindTransientStorage:
		log.Warn("request hit transient storage failure", "error", err)
		w.Header().Set("Retry-After", "1")
	default:
		log.Info("request rejected", "code", e.Code)
	}

	writeJSON(w, e.Kind.HTTPStatus(), ErrorResponse{
		Error:   e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
