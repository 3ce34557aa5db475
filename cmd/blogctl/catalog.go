package main

import (
	"fmt"
	"strconv"

	"blogicum/internal/service"

	"github.com/urfave/cli/v2"
)

func categoryCmd() *cli.Command {
	setPublished := func(published bool) cli.ActionFunc {
		return withRuntime(func(ctx *cli.Context, rt *runtime) error {
			if ctx.Args().Len() == 0 {
				return fmt.Errorf("at least one slug is required")
			}
			for _, slug := range ctx.Args().Slice() {
				if err := rt.categories.SetCategoryPublished(ctx.Context, slug, published); err != nil {
					return fmt.Errorf("%s: %w", slug, err)
				}
				fmt.Fprintf(ctx.App.Writer, "category %s published=%t\n", slug, published)
			}
			return nil
		})
	}

	return &cli.Command{
		Name:  "category",
		Usage: "Manage categories",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every category",
				Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
					categories, err := rt.categories.Categories(ctx.Context)
					if err != nil {
						return err
					}
					for _, c := range categories {
						fmt.Fprintf(ctx.App.Writer, "%-24s %-32s published=%t\n", c.Slug, c.Title, c.IsPublished)
					}
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Create a category",
				ArgsUsage: "<slug> <title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description"},
					&cli.BoolFlag{Name: "unpublished", Usage: "Create the category hidden"},
				},
				Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
					c, err := rt.categories.AddCategory(ctx.Context, service.CategoryInput{
						Slug:        ctx.Args().Get(0),
						Title:       ctx.Args().Get(1),
						Description: ctx.String("description"),
						IsPublished: !ctx.Bool("unpublished"),
					})
					if err != nil {
						return describe(err)
					}
					fmt.Fprintf(ctx.App.Writer, "category %s created (id %d)\n", c.Slug, c.ID)
					return nil
				}),
			},
			{
				Name:      "publish",
				Usage:     "Show categories and their posts",
				ArgsUsage: "<slug>...",
				Action:    setPublished(true),
			},
			{
				Name:      "unpublish",
				Usage:     "Hide categories and every post in them",
				ArgsUsage: "<slug>...",
				Action:    setPublished(false),
			},
			{
				Name:      "delete",
				Usage:     "Delete a category; its posts become uncategorized",
				ArgsUsage: "<slug>",
				Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
					slug := ctx.Args().First()
					if err := rt.categories.DeleteCategory(ctx.Context, slug); err != nil {
						return err
					}
					fmt.Fprintf(ctx.App.Writer, "category %s deleted\n", slug)
					return nil
				}),
			},
		},
	}
}

func locationCmd() *cli.Command {
	setPublished := func(published bool) cli.ActionFunc {
		return withRuntime(func(ctx *cli.Context, rt *runtime) error {
			ids, err := parseIDs(ctx.Args())
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := rt.categories.SetLocationPublished(ctx.Context, id, published); err != nil {
					return fmt.Errorf("location %d: %w", id, err)
				}
				fmt.Fprintf(ctx.App.Writer, "location %d published=%t\n", id, published)
			}
			return nil
		})
	}

	return &cli.Command{
		Name:  "location",
		Usage: "Manage locations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every location",
				Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
					locations, err := rt.categories.Locations(ctx.Context)
					if err != nil {
						return err
					}
					for _, l := range locations {
						fmt.Fprintf(ctx.App.Writer, "%-6d %-32s published=%t\n", l.ID, l.Name, l.IsPublished)
					}
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Create a location",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "unpublished", Usage: "Create the location hidden"},
				},
				Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
					l, err := rt.categories.AddLocation(ctx.Context, service.LocationInput{
						Name:        ctx.Args().First(),
						IsPublished: !ctx.Bool("unpublished"),
					})
					if err != nil {
						return describe(err)
					}
					fmt.Fprintf(ctx.App.Writer, "location %q created (id %d)\n", l.Name, l.ID)
					return nil
				}),
			},
			{
				Name:      "publish",
				Usage:     "Show locations on posts",
				ArgsUsage: "<id>...",
				Action:    setPublished(true),
			},
			{
				Name:      "unpublish",
				Usage:     "Hide locations; posts stay visible",
				ArgsUsage: "<id>...",
				Action:    setPublished(false),
			},
			{
				Name:      "delete",
				Usage:     "Delete a location",
				ArgsUsage: "<id>",
				Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
					id, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
					if err != nil || id == 0 {
						return fmt.Errorf("invalid id %q", ctx.Args().First())
					}
					if err := rt.categories.DeleteLocation(ctx.Context, uint(id)); err != nil {
						return err
					}
					fmt.Fprintf(ctx.App.Writer, "location %d deleted\n", id)
					return nil
				}),
			},
		},
	}
}

func postCmd() *cli.Command {
	setPublished := func(published bool) cli.ActionFunc {
		return withRuntime(func(ctx *cli.Context, rt *runtime) error {
			ids, err := parseIDs(ctx.Args())
			if err != nil {
				return err
			}
			n, err := rt.posts.SetPublished(ctx.Context, ids, published)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%d of %d posts updated (published=%t)\n", n, len(ids), published)
			return nil
		})
	}

	return &cli.Command{
		Name:  "post",
		Usage: "Bulk post moderation",
		Subcommands: []*cli.Command{
			{
				Name:      "publish",
				Usage:     "Publish posts regardless of author",
				ArgsUsage: "<id>...",
				Action:    setPublished(true),
			},
			{
				Name:      "unpublish",
				Usage:     "Hide posts from everyone but their authors",
				ArgsUsage: "<id>...",
				Action:    setPublished(false),
			},
		},
	}
}
