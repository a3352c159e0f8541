package identity

import (
	"context"
	"net/http"

	"github.com/agendaly/agendaly/libs/auth"
)

const (
	RoleOwner        = "owner"
	RoleStaff        = "staff"
	RoleReceptionist = "receptionist"
)

// Actor is the authenticated caller of a state-changing or config operation.
type Actor struct {
	ID         string
	BusinessID string
	Role       string
}

// CanManageAppointment reports whether the actor may transition an
// appointment's status: owners and receptionists of the same business, or the
// assigned professional.
func (a Actor) CanManageAppointment(businessID, professionalID string) bool {
	if a.BusinessID != businessID {
		return false
	}
	switch a.Role {
	case RoleOwner, RoleReceptionist:
		return true
	case RoleStaff:
		return a.ID == professionalID
	}
	return false
}

// CanConfigureBusiness gates the working-hours/catalog surface. The config
// routes are already scoped to the actor's own business by the token, so this
// is purely a role check.
func (a Actor) CanConfigureBusiness() bool {
	return a.Role == RoleOwner || a.Role == RoleReceptionist
}

type ctxKey int

const ctxKeyActor ctxKey = iota

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok
}

// Require authenticates the request via the provider and stores the actor in
// the request context. Public endpoints (slots, booking) skip this middleware.
func Require(provider Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			actor, err := provider.Resolve(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
