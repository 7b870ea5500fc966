package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keggminer/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusForCode maps application error codes to HTTP status codes.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeBadRequest, errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err as an ErrorResponse. Internal errors are masked.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusForCode(code)
	resp := ErrorResponse{Code: code.String(), Message: err.Error()}
	if status == http.StatusInternalServerError {
		resp = ErrorResponse{Code: errors.ErrCodeInternal.String(), Message: "internal server error"}
	}
	c.AbortWithStatusJSON(status, resp)
}
