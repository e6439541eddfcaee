package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xwerkax/BloomlyApp/internal/platform/apierr"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
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

// RespondDomainError maps err through apierr. The original error is logged for
// 5xx responses since the body only carries a generic message.
func RespondDomainError(c *gin.Context, log *logger.Logger, err error) {
	ae := apierr.From(err)
	if ae.Status >= http.StatusInternalServerError && log != nil {
		log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
