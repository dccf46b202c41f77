package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/partstrack-backend/api/responses"
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS returns middleware that applies the API's allowed origin policy.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Requested-With", actorIDHeader, actorNameHeader, responses.RequestIDHeader},
		ExposedHeaders:   []string{responses.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
