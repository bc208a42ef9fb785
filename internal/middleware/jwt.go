package middleware

import (
	"net/http"

	v1 "fedisync/api/v1"
	"fedisync/pkg/jwt"
	"fedisync/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StrictAuth rejects requests without a valid admin token and stores the
// verified claims on the request context.
func StrictAuth(j *jwt.JWT, logger *log.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := ctx.Request.Header.Get("Authorization")
		if tokenString == "" {
			logger.WithContext(ctx).Warn("no token in request", zap.String("url", ctx.Request.URL.String()))
			v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
			ctx.Abort()
			return
		}

		claims, err := j.ParseToken(tokenString)
		if err != nil {
			logger.WithContext(ctx).Error("token parse failed", zap.Error(err))
			v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
			ctx.Abort()
			return
		}

		ctx.Set("claims", claims)
		recoveryLoggerFunc(ctx, logger)
		ctx.Next()
	}
}

func recoveryLoggerFunc(ctx *gin.Context, logger *log.Logger) {
	if claims, ok := ctx.MustGet("claims").(*jwt.AdminClaims); ok {
		logger.WithValue(ctx, zap.String("admin", claims.Username+"@"+claims.Host))
	}
}
