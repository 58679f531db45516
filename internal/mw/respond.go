package mw

import (
	"github.com/gin-gonic/gin"

	"evcharging-backend/internal/apperr"
)

// ErrorBody is the error part of the response envelope.
type ErrorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// Envelope wraps every response body.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Abort stops the chain and answers with err in the error envelope.
func Abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.Status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: err.Code, Message: err.Message},
	})
}
