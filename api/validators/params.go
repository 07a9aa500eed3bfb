package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
)

const maxSlugLen = 200

// ParseUUIDParam reads a chi route parameter as a UUID.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return parseUUID(chi.URLParam(r, name), name)
}

// ParseSlugParam reads a chi route parameter as a lowercased slug.
func ParseSlugParam(r *http.Request, name string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, name)))
	if slug == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	if len(slug) > maxSlugLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is too long")
	}
	return slug, nil
}

func parseUUID(raw, name string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, name+" must be a UUID")
	}
	return id, nil
}
