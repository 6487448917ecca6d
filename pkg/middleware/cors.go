package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4/middleware"
)

// DefaultAllowedOrigins is used when CORS_ALLOWED_ORIGINS is not set.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000", // CRM dev server
}

// CORSConfig returns the CORS configuration for the API. The CRM front end
// calls the routing and suggestion endpoints directly from the browser.
func CORSConfig(origins []string) middleware.CORSConfig {
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	return middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}
}
