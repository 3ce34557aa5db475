package main

import (
	"fmt"

	"blogicum/internal/seed"

	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Fill the database with demo data",
		Description: `Loads the built-in categories and locations, then generates users,
		posts in every visibility state and comments. Every generated user has
		the password ` + seed.DemoPassword + `.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "users", Value: 20, Usage: "Number of users to create"},
			&cli.IntFlag{Name: "posts", Value: 100, Usage: "Number of posts to create"},
			&cli.IntFlag{Name: "comments", Value: 3, Usage: "Comments per live post"},
			&cli.IntFlag{Name: "max-days", Value: 90, Usage: "Spread publication dates over this many days"},
			&cli.BoolFlag{Name: "clean", Usage: "Delete users, posts and comments first"},
			&cli.BoolFlag{Name: "fixtures-only", Usage: "Only load categories and locations"},
			&cli.BoolFlag{Name: "fast", Usage: "Skip bcrypt; generated users cannot log in"},
		},
		Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
			if ctx.Bool("fixtures-only") {
				set, err := seed.BuiltInFixtures()
				if err != nil {
					return err
				}
				categories, locations, err := seed.LoadFixtures(rt.db, set)
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "loaded %d categories and %d locations\n", len(categories), len(locations))
				return nil
			}

			res, err := seed.Seed(rt.db, seed.Options{
				NumUsers:        ctx.Int("users"),
				NumPosts:        ctx.Int("posts"),
				CommentsPerPost: ctx.Int("comments"),
				MaxDays:         ctx.Int("max-days"),
				ShouldClean:     ctx.Bool("clean"),
				SkipBcrypt:      ctx.Bool("fast") && !rt.cfg.IsProduction(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "created %d users, %d posts, %d comments\n", res.Users, res.Posts, res.Comments)
			return nil
		}),
	}
}
