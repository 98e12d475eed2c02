package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError translates service-layer errors into HTTP
// responses. Validation messages are safe to echo back; everything
// unexpected is logged and returned as an opaque 500.
func RespondServiceError(c *gin.Context, log *logger.Logger, err error) {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		RespondError(c, http.StatusBadRequest, "invalid_request", verr)
	case errors.Is(err, errs.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
	case errors.Is(err, errs.ErrPermissionDenied):
		RespondError(c, http.StatusForbidden, "forbidden", errors.New("permission denied"))
	case errors.Is(err, errs.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", errors.New("patch is no longer reviewable"))
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	}
}
