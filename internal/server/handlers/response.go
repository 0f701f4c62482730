package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: items, Count: &count})
}

// RespondError translates err into an error envelope. Errors without an
// application code are logged and hidden behind a generic message.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	body := Envelope{Success: false, Message: meta.PublicMessage}
	if meta.DetailsAllowed {
		if msg := typed.Message(); msg != "" {
			body.Message = msg
		}
		body.Errors = typed.Details()
	}

	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("code", string(typed.Code())),
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.Error(err),
	}
	if meta.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}

	c.AbortWithStatusJSON(meta.HTTPStatus, body)
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "Format permintaan tidak valid").WithDetails(err.Error())
	}
	return nil
}

func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Newf(apperr.CodeValidation, "%s tidak valid: %q", name, c.Param(name))
	}
	return uint(id), nil
}

func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Newf(apperr.CodeValidation, "%s tidak valid: %q", name, raw)
	}
	return uint(id), nil
}
