package users

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/security"
)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRegistration validates the payload and builds the user row with a
// hashed password. Nothing is written; the caller persists the result.
func NormalizeRegistration(input RegisterInput, cfg config.PasswordConfig) (*models.User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	hash, err := security.HashPassword(input.Password, cfg)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) || strings.TrimSpace(input.Password) == "" {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         enums.UserRoleStudent,
	}, nil
}
