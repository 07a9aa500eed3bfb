package controllers

import (
	"net/http"

	"github.com/angelmondragon/coursevault-backend/internal/certificates"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

// CertificateVerify is public. Unknown or malformed ids are a 200 with
// valid=false, never a 404.
func CertificateVerify(svc certificates.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "certificate")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) (*certificates.Verification, error) {
		return svc.Verify(r.Context(), r.URL.Query().Get("id"))
	})
}
