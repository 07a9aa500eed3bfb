package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/api/validators"
	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/internal/users"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signup struct {
	credentials
	Name string `json:"name" validate:"required,max=200"`
}

func AuthRegister(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "user")
	}
	return respond(logg, http.StatusCreated, func(r *http.Request) (*users.Session, error) {
		var body signup
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Register(r.Context(), users.RegisterInput{Email: body.Email, Name: body.Name, Password: body.Password})
	})
}

// AuthLogin exchanges credentials for a bearer token.
func AuthLogin(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "user")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) (*users.Session, error) {
		var body credentials
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), users.LoginInput{Email: body.Email, Password: body.Password})
	})
}

func Me(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "user")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*users.UserDTO, error) {
		return svc.Get(r.Context(), userID)
	})
}

// MyCourses lists every course the caller may watch, however it was granted.
func MyCourses(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "entitlement")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) ([]entitlements.OwnedCourseDTO, error) {
		owned, err := svc.ListOwned(r.Context(), userID)
		return nonNil(owned), err
	})
}
