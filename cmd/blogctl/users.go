package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"blogicum/internal/models"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

func createSuperuserCmd() *cli.Command {
	return &cli.Command{
		Name:  "createsuperuser",
		Usage: "Create an administrator account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{
				Name:     "password",
				Usage:    "Password; prefer the environment variable over the flag",
				EnvVars:  []string{"BLOGICUM_SUPERUSER_PASSWORD"},
				Required: true,
			},
		},
		Action: withRuntime(func(ctx *cli.Context, rt *runtime) error {
			user, err := rt.users.CreateSuperuser(ctx.Context,
				strings.TrimSpace(ctx.String("username")),
				strings.TrimSpace(strings.ToLower(ctx.String("email"))),
				ctx.String("password"),
			)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(ctx.App.Writer, "superuser %s created (id %d)\n", user.Username, user.ID)
			return nil
		}),
	}
}

// describe flattens field errors into one line for the terminal.
func describe(err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || len(appErr.Fields) == 0 {
		return err
	}
	fields := lo.Keys(appErr.Fields)
	sort.Strings(fields)
	parts := lo.Map(fields, func(field string, _ int) string {
		return field + ": " + appErr.Fields[field]
	})
	return errors.New(strings.Join(parts, "; "))
}
