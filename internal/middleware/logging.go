package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/log"
)

// RequestLogger attaches a request scoped logrus entry to the request
// context and logs one line per request.  The request id is taken from
// X-Request-ID when the client sent one and echoed back in the response.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqID := req.Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			entry := logrus.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(log.ToContext(req.Context(), entry)))

			start := time.Now()
			if err := next(c); err != nil {
				// Render the error now so the logged status is final.
				c.Error(err)
			}
			fields := logrus.Fields{
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
			}
			if uid := UserID(c); uid != "" {
				fields["user_id"] = uid
			}
			if c.Path() == "/healthz" {
				entry.WithFields(fields).Debug("request")
			} else {
				entry.WithFields(fields).Info("request")
			}
			return nil
		}
	}
}
