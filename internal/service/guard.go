package service

import (
	"blogicum/internal/models"
	"blogicum/internal/observability"
)

// Decision is the outcome of an ownership check.
type Decision int

const (
	// RequireLogin means the viewer must authenticate first.
	RequireLogin Decision = iota
	// Allow lets the mutation proceed.
	Allow
	// Deny refuses the mutation; the viewer is sent back to the post.
	Deny
)

func (d Decision) String() string {
	switch d {
	case RequireLogin:
		return "require_login"
	case Allow:
		return "allow"
	default:
		return "deny"
	}
}

// Action names a mutation guarded by Authorize.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Owned is anything with a single owning user.
type Owned interface {
	OwnerID() uint
}

// Authorize decides whether viewer may perform action on resource. Owners
// may do anything; superusers may additionally delete comments.
func Authorize(viewer Viewer, resource Owned, action Action) Decision {
	if !viewer.IsAuthenticated() {
		return RequireLogin
	}
	if resource == nil {
		return Deny
	}
	if resource.OwnerID() == viewer.ID {
		return Allow
	}
	if _, isComment := resource.(*models.Comment); isComment && action == ActionDelete && viewer.IsSuperuser {
		return Allow
	}
	return Deny
}

// guard runs Authorize and converts a refusal into an AppError: UNAUTHORIZED
// for anonymous viewers, FORBIDDEN otherwise.
func guard(viewer Viewer, resource Owned, action Action, kind string) error {
	switch Authorize(viewer, resource, action) {
	case Allow:
		return nil
	case RequireLogin:
		return models.NewUnauthorizedError("Log in to " + string(action) + " this " + kind)
	default:
		observability.OwnershipDenials.WithLabelValues(kind, string(action)).Inc()
		return models.NewForbiddenError("You can only " + string(action) + " your own " + kind + "s")
	}
}
