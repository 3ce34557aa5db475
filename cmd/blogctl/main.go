// Command blogctl is the operator CLI for Blogicum: schema migrations, demo
// data, superusers, the category and location catalog and bulk post
// publication.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// RootApp builds the CLI.
func RootApp() *cli.App {
	return &cli.App{
		Name:  "blogctl",
		Usage: "Manage a Blogicum installation",
		Description: `Runs maintenance tasks against the database configured for the
		web server. Configuration is read the same way: config.yml, the
		profile file for APP_ENV and environment variables such as
		DB_DRIVER, SQLITE_PATH or DB_HOST.`,
		Commands: []*cli.Command{
			migrateCmd(),
			seedCmd(),
			createSuperuserCmd(),
			categoryCmd(),
			locationCmd(),
			postCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return cli.ShowAppHelp(ctx)
		},
	}
}
