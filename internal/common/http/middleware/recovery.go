package middleware

import (
	"fmt"

	appErr "printum/pkg/errors"
	"printum/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into the standard 500 error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		response.AbortWithError(c, appErr.InternalError(fmt.Errorf("panic: %v", recovered)))
	})
}
