// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"blogicum/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "blogicum123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rnd  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
	hash   string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{
		db:     db,
		opts:   opts,
		rnd:    rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		nextID: 1000,
	}
}

func (f *Factory) passwordHash() string {
	if f.hash != "" {
		return f.hash
	}
	if f.opts.SkipBcrypt {
		f.hash = DemoPassword
		return f.hash
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("seed: hash demo password: %v", err)
		f.hash = DemoPassword
		return f.hash
	}
	f.hash = string(hashed)
	return f.hash
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, gofakeit.Number(100, 999)))
	username = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\'' {
			return '_'
		}
		return r
	}, username)

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: first,
		LastName:  last,
		Password:  f.passwordHash(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a live post by author without persisting it. The
// publication date is spread over the last MaxDays days.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rnd.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute

	post := &models.Post{
		Title:       strings.TrimSuffix(gofakeit.Sentence(f.rnd.Intn(5)+3), "."),
		Text:        gofakeit.Paragraph(f.rnd.Intn(3)+1, 4, 12, "\n\n"),
		PubDate:     time.Now().UTC().Add(-back - time.Minute),
		IsPublished: true,
		AuthorID:    author.ID,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample post for author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: author=%d title=%q", post.AuthorID, post.Title)
		return post, nil
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.CreateInBatches(posts, batch).Error
}

// CreateComment constructs and persists a sample comment by author on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:     gofakeit.Sentence(f.rnd.Intn(12) + 4),
		AuthorID: author.ID,
		PostID:   post.ID,
	}
	for _, override := range overrides {
		override(comment)
	}
	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Scheduled moves a post's publication date into the future.
func Scheduled(after time.Duration) func(*models.Post) {
	return func(p *models.Post) {
		p.PubDate = time.Now().UTC().Add(after)
	}
}

// Draft unpublishes a post.
func Draft() func(*models.Post) {
	return func(p *models.Post) { p.IsPublished = false }
}

// InCategory files a post under c.
func InCategory(c *models.Category) func(*models.Post) {
	return func(p *models.Post) { p.CategoryID = &c.ID }
}

// AtLocation tags a post with l.
func AtLocation(l *models.Location) func(*models.Post) {
	return func(p *models.Post) { p.LocationID = &l.ID }
}
