package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id stored by JWTAuth, or "" when
// the request is anonymous.
func UserID(c echo.Context) string {
	v, _ := c.Get(ContextUserID).(string)
	return v
}

// Role returns the authenticated user's role stored by JWTAuth.
func Role(c echo.Context) string {
	v, _ := c.Get(ContextRole).(string)
	return v
}
