package middleware

import (
	"net/http"

	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorNameHeader = "X-Actor-Name"
	maxActorLen     = 120
)

// Actor attributes the request to the caller named in the actor headers.
// Requests without them act as the system actor.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := types.NewActor(
				validators.SanitizeString(r.Header.Get(actorIDHeader), maxActorLen),
				validators.SanitizeString(r.Header.Get(actorNameHeader), maxActorLen),
			).OrSystem()

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actor.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
