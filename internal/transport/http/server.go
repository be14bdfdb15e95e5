// Package http assembles the public HTTP server.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/catalog"
	"github.com/xiaot623/smartdoc/internal/service"
	v1 "github.com/xiaot623/smartdoc/internal/transport/http/v1"
	"github.com/xiaot623/smartdoc/internal/transport/ws"
)

// NewServer creates the echo server with the REST API and the session
// stream endpoint.
func NewServer(svc *service.Service, cat *catalog.Service, stream *ws.Server, bodyLimit string, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}

	// Handlers
	var stats v1.StreamStats
	if stream != nil {
		stats = stream
	}
	v1Handler := v1.NewHandler(svc, cat, stats)
	v1Handler.RegisterRoutes(e)
	if stream != nil {
		e.GET("/v1/sessions/:session_id/stream", stream.HandleWebSocket)
	}

	return e
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
