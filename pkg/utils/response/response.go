package response

import (
	"net/http"

	"printum/pkg/errors"
	"printum/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the JSON body returned for every failed request.
type ErrorBody struct {
	Error   string           `json:"error"`
	Details interface{}      `json:"details,omitempty"`
	Code    errors.ErrorCode `json:"code"`
	TraceID string           `json:"trace_id,omitempty"`
}

// JSON sends an arbitrary JSON payload with the given status.
func JSON(c *gin.Context, status int, body interface{}) {
	c.JSON(status, body)
}

// Error sends an error response
// It automatically extracts error code and message from the error
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)
	status := customErr.Code.HTTPStatus()

	fields := []zap.Field{
		zap.Int("code", int(customErr.Code)),
		zap.Int("status", status),
		zap.String("message", customErr.Error()),
		zap.Any("details", customErr.Details),
	}
	clientErr := customErr.Code.IsClientError()
	if !clientErr {
		if customErr.Err != nil {
			fields = append(fields, zap.NamedError("cause", customErr.Err))
		}
		fields = append(fields, zap.String("stack", customErr.Stack))
		logger.Error(c.Request.Context(), "request failed", fields...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}

	resp := ErrorBody{
		Error:   publicMessage(customErr, status),
		Code:    customErr.Code,
		TraceID: getTraceID(c),
	}
	// Server-side details can carry engine output and filesystem paths.
	if clientErr && len(customErr.Details) > 0 {
		resp.Details = customErr.Details
	}

	c.JSON(status, resp)
}

// ErrorWithCode sends an error response with specific error code
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}
	Error(c, errors.New(code).WithMessage(message))
}

// AbortWithError aborts the request and sends error response
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// publicMessage hides messages copied verbatim from underlying system errors on 5xx responses.
func publicMessage(e *errors.Error, status int) string {
	if status < http.StatusInternalServerError {
		return e.Error()
	}
	if e.Err != nil && e.Message == e.Err.Error() {
		return e.Code.Message()
	}
	if e.Message == "" {
		return e.Code.Message()
	}
	return e.Message
}

// getTraceID extracts trace ID from context
func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
