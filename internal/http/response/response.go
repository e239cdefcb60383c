package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/platform/apierr"
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

// RespondErr picks the status and code from err. An *apierr.Error wins;
// anything unrecognized came from the LearnDB service or the network and is
// reported as 502.
func RespondErr(c *gin.Context, err error) {
	status, code := classify(err)
	RespondError(c, status, code, err)
}

func classify(err error) (int, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status, ae.Code
	}
	switch {
	case errors.Is(err, pkgerrors.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, pkgerrors.ErrNoChallenge):
		return http.StatusConflict, "no_challenge"
	case errors.Is(err, pkgerrors.ErrHintsExhausted):
		return http.StatusConflict, "hints_exhausted"
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusBadGateway, "upstream_unauthorized"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
