package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
)

// RequestID tags every request with a UUID in X-Request-ID unless the
// client already supplied one.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
    })
}

// RequestLogger writes one structured log entry per request.  Server
// errors are logged at error level, everything else at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRemoteIP:  true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            fields := []zap.Field{
                zap.String("method", v.Method),
                zap.String("uri", v.URI),
                zap.Int("status", v.Status),
                zap.Duration("latency", v.Latency),
                zap.String("remote_ip", v.RemoteIP),
                zap.String("request_id", v.RequestID),
            }
            if uid := currentUserID(c); uid != "anon" {
                fields = append(fields, zap.String("user_id", uid))
            }
            if v.Error != nil {
                fields = append(fields, zap.Error(v.Error))
            }
            if v.Status >= 500 {
                log.Error("request", fields...)
            } else {
                log.Info("request", fields...)
            }
            return nil
        },
    })
}
