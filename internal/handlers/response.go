package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

const (
	CodeValidation         = "validation"
	CodeNotFound           = "not_found"
	CodeRequiresOptIn      = "requires_opt_in"
	CodeSheetExpired       = "sheet_expired"
	CodeUpstreamFailure    = "upstream_failure"
	CodeCategoryNotAllowed = "category_not_allowed"
)

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
