package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/api/middleware"
	"github.com/angelmondragon/coursevault-backend/api/responses"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

// respond turns fn into a handler that writes its result inside the data
// envelope with status, or the error envelope when fn fails.
func respond[T any](logg *logger.Logger, status int, fn func(r *http.Request) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// authed is respond for routes behind Auth; fn receives the caller's id.
func authed[T any](logg *logger.Logger, status int, fn func(r *http.Request, userID uuid.UUID) (T, error)) http.HandlerFunc {
	return respond(logg, status, func(r *http.Request) (T, error) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(r, userID)
	})
}

// unavailable stands in for a route whose service was not wired.
func unavailable(logg *logger.Logger, service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, service+" service unavailable"))
	}
}

func currencyOrDefault(raw string) enums.Currency {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return enums.CurrencyARS
	}
	return enums.Currency(raw)
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
