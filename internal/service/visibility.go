// Package service holds the blog's domain logic: who may see which posts,
// how feeds are composed and who may change what.
package service

import (
	"time"

	"blogicum/internal/models"
)

// Viewer is the identity a request acts as. The zero value is anonymous.
type Viewer struct {
	ID          uint
	IsSuperuser bool
}

// Anonymous returns the viewer of a request with no session.
func Anonymous() Viewer {
	return Viewer{}
}

// ViewerOf builds the viewer for a loaded user; nil means anonymous.
func ViewerOf(u *models.User) Viewer {
	if u == nil {
		return Anonymous()
	}
	return Viewer{ID: u.ID, IsSuperuser: u.IsSuperuser}
}

// IsAuthenticated reports whether the viewer is logged in.
func (v Viewer) IsAuthenticated() bool {
	return v.ID != 0
}

// Is reports whether the viewer is the user with id.
func (v Viewer) Is(id uint) bool {
	return v.IsAuthenticated() && v.ID == id
}

// IsLive reports whether post is visible to the public at now: published,
// due, and either uncategorized or in a published category. The category
// must be loaded for posts that have one.
func IsLive(post *models.Post, now time.Time) bool {
	if post == nil || !post.IsPublished {
		return false
	}
	if post.PubDate.After(now) {
		return false
	}
	if post.Category != nil && !post.Category.IsPublished {
		return false
	}
	return true
}

// CanView reports whether viewer may open post. Authors always see their
// own posts.
func CanView(viewer Viewer, post *models.Post, now time.Time) bool {
	if post == nil {
		return false
	}
	if viewer.Is(post.AuthorID) {
		return true
	}
	return IsLive(post, now)
}
