// Package handler provides the JSON API handlers.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/middleware"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

const maxBodyBytes = 1 << 20

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. Validation failures
// are reported as the message of the first failing field.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apierrors.ErrBadRequest.WithMessage("Corps de requête invalide")
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apierrors.NewValidationError(fe.Field(), fieldMessage(fe))
		}
		return apierrors.ErrBadRequest
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Le champ %s est requis", fe.Field())
	case "email":
		return "Adresse email invalide"
	case "min":
		return fmt.Sprintf("Le champ %s doit contenir au moins %s caractères", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Le champ %s ne doit pas dépasser %s caractères", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("Le champ %s doit valoir l'une des valeurs : %s", fe.Field(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("Le champ %s est hors limites", fe.Field())
	case "uuid":
		return fmt.Sprintf("Le champ %s doit être un identifiant valide", fe.Field())
	default:
		return fmt.Sprintf("Le champ %s est invalide", fe.Field())
	}
}

// fail renders err. Errors outside the catalogue are logged and reported generically.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var rl *apierrors.RateLimitError
	if !apierrors.IsAPIError(err) && !stderrors.As(err, &rl) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	response.Error(w, err)
}

// identity returns the authenticated caller or writes 401.
func identity(w http.ResponseWriter, r *http.Request) *service.Identity {
	id := middleware.IdentityFrom(r.Context())
	if id == nil {
		response.Error(w, apierrors.ErrUnauthorized)
		return nil
	}
	return id
}

func pathUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, apierrors.NewValidationError(field, "Identifiant invalide"))
		return uuid.Nil, false
	}
	return id, true
}
