package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/api/validators"
	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

type claimResult struct {
	Success bool `json:"success"`
}

// CourseClaim grants a free course; paid courses answer NOT_FREE.
func CourseClaim(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "entitlement")
	}
	return authed(logg, http.StatusCreated, func(r *http.Request, userID uuid.UUID) (claimResult, error) {
		courseID, err := validators.ParseUUIDParam(r, "courseId")
		if err != nil {
			return claimResult{}, err
		}
		if err := svc.ClaimFree(r.Context(), userID, courseID); err != nil {
			return claimResult{}, err
		}
		return claimResult{Success: true}, nil
	})
}
