package seed

import (
	"fmt"
	"log"
	"time"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	MaxDays         int
	BatchSize       int
	RandSeed        int64
	ShouldClean     bool
	SkipBcrypt      bool
	DryRun          bool
}

// Mix is the share of posts, in percent, that are kept away from the
// public feeds in each way.
type Mix struct {
	Scheduled int
	Drafts    int
	Hidden    int
}

var defaultMix = Mix{Scheduled: 10, Drafts: 10, Hidden: 10}

// Result reports what Seed created.
type Result struct {
	Users      int
	Posts      int
	Comments   int
	Categories int
	Locations  int
}

// computeCounts splits total into live, scheduled, draft and hidden-category
// posts. Rounding leftovers go to live posts.
func computeCounts(total int, mix Mix) (live, scheduled, drafts, hidden int) {
	scheduled = total * mix.Scheduled / 100
	drafts = total * mix.Drafts / 100
	hidden = total * mix.Hidden / 100
	live = total - scheduled - drafts - hidden
	if live < 0 {
		live = 0
	}
	return live, scheduled, drafts, hidden
}

// Seed populates the database with demo data: the fixture taxonomy, users,
// posts in every visibility state and comments on live posts.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	log.Printf("seeding database with %d users and %d posts", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	fixtures, err := BuiltInFixtures()
	if err != nil {
		return nil, err
	}
	var categories []models.Category
	var locations []models.Location
	if !opts.DryRun {
		categories, locations, err = LoadFixtures(db, fixtures)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixtures: %w", err)
		}
	}
	res := &Result{Categories: len(fixtures.Categories), Locations: len(fixtures.Locations)}

	f := NewFactory(db, opts)
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			log.Printf("seed: skip user: %v", err)
			continue
		}
		users = append(users, u)
	}
	res.Users = len(users)
	if len(users) == 0 {
		return res, nil
	}

	posts := buildPosts(f, users, categories, locations, opts.NumPosts)
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = len(posts)

	now := time.Now().UTC()
	for _, p := range posts {
		if !p.IsPublished || p.PubDate.After(now) {
			continue
		}
		for i := 0; i < opts.CommentsPerPost; i++ {
			author := users[f.rnd.Intn(len(users))]
			if _, err := f.CreateComment(author, p); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			res.Comments++
		}
	}

	log.Printf("seeding done: %d users, %d posts, %d comments", res.Users, res.Posts, res.Comments)
	return res, nil
}

func buildPosts(f *Factory, users []*models.User, categories []models.Category, locations []models.Location, total int) []*models.Post {
	var public, hidden []models.Category
	for _, c := range categories {
		if c.IsPublished {
			public = append(public, c)
		} else {
			hidden = append(hidden, c)
		}
	}

	live, scheduled, drafts, inHidden := computeCounts(total, defaultMix)
	if len(hidden) == 0 {
		live += inHidden
		inHidden = 0
	}

	posts := make([]*models.Post, 0, total)
	add := func(n int, extra ...func(*models.Post)) {
		for i := 0; i < n; i++ {
			opts := append([]func(*models.Post){}, extra...)
			if len(public) > 0 && f.rnd.Intn(4) > 0 {
				opts = append(opts, InCategory(&public[f.rnd.Intn(len(public))]))
			}
			if len(locations) > 0 && f.rnd.Intn(2) == 0 {
				opts = append(opts, AtLocation(&locations[f.rnd.Intn(len(locations))]))
			}
			posts = append(posts, f.BuildPost(users[f.rnd.Intn(len(users))], opts...))
		}
	}

	add(live)
	add(scheduled, Scheduled(time.Duration(f.rnd.Intn(72)+1)*time.Hour))
	add(drafts, Draft())
	for i := 0; i < inHidden; i++ {
		c := hidden[f.rnd.Intn(len(hidden))]
		posts = append(posts, f.BuildPost(users[f.rnd.Intn(len(users))], InCategory(&c)))
	}
	return posts
}

func clearData(db *gorm.DB) error {
	log.Println("clearing existing data")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
