package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/database"
	"github.com/mysteryforum/forum-api/internal/repository"
	"github.com/mysteryforum/forum-api/internal/service"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "forumctl",
		Usage: "Operator tooling for the mystery forum API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres DSN",
				Sources: cli.EnvVars("FORUM_DATABASE_URL"),
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			userCommand(logger),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		logger.Fatal().Err(err).Msg("forumctl failed")
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply pending migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openDatabase(c)
					if err != nil {
						return err
					}
					return database.RunMigrations(ctx, db)
				},
			},
			{
				Name:  "status",
				Usage: "Print the state of every migration",
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := openDatabase(c)
					if err != nil {
						return err
					}
					return database.MigrationStatus(ctx, db)
				},
			},
		},
	}
}

func userCommand(logger zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Administer forum accounts",
		Commands: []*cli.Command{
			{
				Name:      "set-role",
				Usage:     "Change the role of an account",
				ArgsUsage: "<username> <USER|ADMIN|BANNED>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("expected <username> <role>, got %d arguments", c.Args().Len())
					}
					db, err := openDatabase(c)
					if err != nil {
						return err
					}

					store := repository.NewStore(db)
					activity := service.NewActivityService(store.Repositories().Activity, logger)
					user, err := service.NewRoleService(store, activity, logger).SetRole(ctx, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Printf("%s is now %s\n", user.Username, user.Role)
					return nil
				},
			},
		},
	}
}

func openDatabase(c *cli.Command) (*gorm.DB, error) {
	dsn := c.String("database-url")
	if dsn == "" {
		return nil, fmt.Errorf("--database-url or FORUM_DATABASE_URL is required")
	}
	return database.ConnectPostgres(dsn)
}
