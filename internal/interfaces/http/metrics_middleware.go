package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HTTPMetrics recibe una observación por petición atendida.
type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int)
}

// MetricsMiddleware cuenta peticiones por método, ruta registrada (no la URL cruda) y status.
func MetricsMiddleware(m HTTPMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		m.ObserveHTTP(c.Method(), c.Route().Path, status)
		return err
	}
}
