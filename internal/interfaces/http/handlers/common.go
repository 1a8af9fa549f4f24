// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/forgeff/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error to its HTTP status.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.JSON(code.HTTPStatus(), ErrorResponse{
		Code:    code.String(),
		Message: err.Error(),
	})
}
