package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/mw"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, mw.Envelope{Success: true, Data: data})
}

// respondError writes err in the error envelope. Anything that is not a
// business error is logged and reported as INTERNAL_ERROR.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr, ok := apperr.From(err)
	if !ok {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	mw.Abort(c, appErr)
}

// bindJSON decodes the body and reports every constraint violation at once.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("malformed request body")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+reason(fe))
	}
	return apperr.Validation(strings.Join(msgs, ", "))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "email":
		return "must be a well-formed email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name + ": must be a positive integer")
	}
	return id, nil
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
