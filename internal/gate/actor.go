package gate

import (
	"context"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/models"
)

// Actor is an authenticated user acting under one resolved role capability.
// RegionID is set for dr actors, BrancheID for cdc actors.
type Actor struct {
	UserID    uint
	Kind      models.RoleKind
	RegionID  *uint
	BrancheID *uint
}

// Profile regroupe les capacités de rôle d'un utilisateur.
type Profile struct {
	UserID      uint
	Assignments []models.RoleAssignment
}

// precedence orders role kinds when a request does not name an acting role.
var precedence = []models.RoleKind{
	models.RoleAdmin, models.RoleDrif, models.RoleDr,
	models.RoleCdc, models.RoleAnimateur, models.RoleStagiaire,
}

func actorFrom(uid uint, a models.RoleAssignment) *Actor {
	return &Actor{UserID: uid, Kind: a.Kind, RegionID: a.RegionID, BrancheID: a.BrancheID}
}

// Actor returns the actor for one of the user's role kinds.
// Fails loud on an unrecognized kind so a typo never reads as "no access".
func (p *Profile) Actor(kind models.RoleKind) (*Actor, error) {
	if !kind.Known() {
		return nil, apperr.UnknownRole(string(kind))
	}
	for _, a := range p.Assignments {
		if a.Kind == kind {
			return actorFrom(p.UserID, a), nil
		}
	}
	return nil, apperr.Authorization("forbidden", string(kind))
}

// Default picks the highest-precedence role the user holds.
func (p *Profile) Default() (*Actor, error) {
	for _, kind := range precedence {
		for _, a := range p.Assignments {
			if a.Kind == kind {
				return actorFrom(p.UserID, a), nil
			}
		}
	}
	return nil, apperr.Authorization("forbidden", "none")
}

// Resolver resolves a user id to their role profile.
type Resolver interface {
	Resolve(ctx context.Context, userID uint) (*Profile, error)
}
