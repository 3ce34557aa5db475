package models

import (
	"fmt"
	"time"
)

// Post is a blog entry. A PubDate in the future schedules the post.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time `gorm:"not null;index" json:"pub_date"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	Image       string    `gorm:"size:64" json:"image,omitempty"`

	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	LocationID *uint     `gorm:"index" json:"location_id,omitempty"`
	Location   *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL" json:"location,omitempty"`

	// CommentsCount is computed by feed queries and never stored.
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID returns the author of the post.
func (p *Post) OwnerID() uint { return p.AuthorID }

// HasImage reports whether an image is attached.
func (p Post) HasImage() bool { return p.Image != "" }

// ImageURL is the JPEG master of the attached image.
func (p Post) ImageURL() string {
	if p.Image == "" {
		return ""
	}
	return fmt.Sprintf("/media/%s/master.jpg", p.Image)
}

// ImageWebPURL is the WebP master of the attached image.
func (p Post) ImageWebPURL() string {
	if p.Image == "" {
		return ""
	}
	return fmt.Sprintf("/media/%s/master.webp", p.Image)
}
