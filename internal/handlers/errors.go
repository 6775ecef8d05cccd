package handlers

import (
	"errors"
	"net/http"

	"github.com/musicclub/apiserver/internal/auth"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/internal/session"
	"github.com/musicclub/apiserver/internal/store"
	"go.uber.org/zap"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeUnauthenticated       = "unauthenticated"
	CodeForbidden             = "forbidden"
	CodeInvalidRole           = "invalid_role"
	CodeLastAdminProtected    = "last_admin_protected"
	CodeSelfDemotionForbidden = "self_demotion_forbidden"
	CodeNoChanges             = "no_changes"
	CodeInvalidInput          = "invalid_input"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeNotFound              = "not_found"
	CodeAlreadyExists         = "already_exists"
	CodeConflict              = "conflict"
	CodeInUse                 = "in_use"
	CodeInternal              = "internal_error"
)

const internalErrorMessage = "internal server error"

type errorMapping struct {
	target error
	status int
	code   string
	// exposeCause returns the wrapped message instead of the sentinel's.
	exposeCause bool
}

var errorTable = []errorMapping{
	{auth.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated, false},
	{session.ErrNotFound, http.StatusUnauthorized, CodeUnauthenticated, false},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, false},
	{services.ErrInvalidRole, http.StatusBadRequest, CodeInvalidRole, false},
	{services.ErrLastAdminProtected, http.StatusBadRequest, CodeLastAdminProtected, false},
	{services.ErrSelfDemotionForbidden, http.StatusBadRequest, CodeSelfDemotionForbidden, false},
	{services.ErrNoChanges, http.StatusBadRequest, CodeNoChanges, false},
	{services.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput, true},
	{store.ErrNotFound, http.StatusNotFound, CodeNotFound, true},
	{store.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists, false},
	{services.ErrConflict, http.StatusConflict, CodeConflict, true},
	{store.ErrInUse, http.StatusConflict, CodeInUse, false},
}

// statusFor maps an error onto its HTTP status, code and client-safe message.
func statusFor(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			message := m.target.Error()
			if m.exposeCause {
				message = err.Error()
			}
			return m.status, m.code, message
		}
	}
	return http.StatusInternalServerError, CodeInternal, internalErrorMessage
}

// respondError writes err using the error table. Unmapped errors are logged
// and reported as a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, code, message := statusFor(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message)
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
}
