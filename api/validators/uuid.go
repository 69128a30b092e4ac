package validators

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
)

// ParseUUID converts a client-supplied identifier, mapping parse failures to
// a validation error naming the field.
func ParseUUID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
			WithDetails(map[string]string{field: "must be a UUID"})
	}
	return id, nil
}

// URLParamUUID extracts and parses a UUID path parameter.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	return ParseUUID(name, chi.URLParam(r, name))
}
