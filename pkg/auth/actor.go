package auth

import (
	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ActorFromClaims projects verified token claims onto an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// Valid reports whether the actor carries an id and a known role.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.Role.IsValid()
}

// Is reports whether the actor holds one of roles.
func (a Actor) Is(roles ...enums.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
