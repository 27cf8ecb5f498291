package authz

import (
	"context"
	"net/http"

	"github.com/districthq/districthq/internal/platform/httpx"
	"github.com/districthq/districthq/internal/rbac"
)

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor *rbac.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor placed by Require middleware. Nil
// means no authenticated actor.
func ActorFromContext(ctx context.Context) *rbac.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*rbac.Actor)
	return actor
}

// Require wraps handlers with an authorization check. Denials become
// problem responses; on success the actor is available downstream via
// ActorFromContext.
func (g *Gate) Require(req Requirements) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := g.Authorize(r, req)
			if err != nil {
				denial, ok := err.(*Denial)
				if !ok {
					denial = denialForbidden
				}
				title := "Forbidden"
				if denial.Status == http.StatusUnauthorized {
					title = "Unauthorized"
				}
				httpx.Problem(w, denial.Status, title, denial.Reason)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}
