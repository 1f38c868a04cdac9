// Package main is the entry point for the Overflow Admin CLI.
// It manages users and runs moderation actions without going through the API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/prn-tf/overflow-admin/internal/app"
	"github.com/prn-tf/overflow-admin/internal/config"
	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/logging"
	"github.com/prn-tf/overflow-admin/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:  "overflow-admin",
		Usage: "Administer Overflow users and bans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
		},
		Commands: []*cli.Command{
			userCommand(),
			banCommand(),
			unbanCommand(),
			{
				Name:  "auto-unban",
				Usage: "Lift every expired temporary ban now",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
						res := a.Scheduler.Tick(ctx)
						if res.Err != nil {
							return res.Err
						}
						if res.Skipped {
							fmt.Println("Another process is running the sweep; skipped")
							return nil
						}
						return printJSON(res.Result)
					})
				},
			},
			{
				Name:  "temp-bans",
				Usage: "List temporary bans, soonest expiry first",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
						users, err := a.Moderation.ListTemporaryBans(ctx)
						if err != nil {
							return err
						}
						return printJSON(users)
					})
				},
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("Overflow Admin CLI\n")
					fmt.Printf("Version: %s\n", Version)
					fmt.Printf("Build Time: %s\n", BuildTime)
					fmt.Printf("Git Commit: %s\n", GitCommit)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "role", Value: string(domain.RoleUser), Usage: "admin or user"},
					&cli.StringFlag{Name: "status", Value: string(domain.UserStatusActive), Usage: "active, inactive or pending"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
						out, err := a.Users.Create(ctx, service.CreateUserInput{
							Name:     c.String("name"),
							Email:    c.String("email"),
							Password: c.String("password"),
							Role:     domain.UserRole(c.String("role")),
							Status:   domain.UserStatus(c.String("status")),
						})
						if err != nil {
							return err
						}
						return printJSON(out.User)
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a user by email or ID",
				ArgsUsage: "<email-or-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					key := c.Args().First()
					if key == "" {
						return fmt.Errorf("email or ID is required")
					}
					return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
						u, err := a.Users.Lookup(ctx, key)
						if err != nil {
							return err
						}
						return printJSON(u.Public())
					})
				},
			},
			{
				Name:  "list",
				Usage: "List users, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.IntFlag{Name: "offset", Value: 0},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
						out, err := a.Users.List(ctx, service.ListUsersInput{
							Limit:  int(c.Int("limit")),
							Offset: int(c.Int("offset")),
						})
						if err != nil {
							return err
						}
						return printJSON(out)
					})
				},
			},
		},
	}
}

func banCommand() *cli.Command {
	return &cli.Command{
		Name:      "ban",
		Usage:     "Ban a user",
		ArgsUsage: "<email-or-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Required: true},
			&cli.IntFlag{Name: "days", Value: 0, Usage: "ban length in days, 0 for permanent"},
			&cli.BoolFlag{Name: "test", Usage: "short test ban of moderation.test_ban_duration"},
			&cli.BoolFlag{Name: "email", Value: true, Usage: "notify the user"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			key := c.Args().First()
			if key == "" {
				return fmt.Errorf("email or ID is required")
			}
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				u, err := a.Users.Lookup(ctx, key)
				if err != nil {
					return err
				}
				if c.Bool("test") && !a.Config.Moderation.TestBansEnabled {
					return fmt.Errorf("test bans are disabled (moderation.test_bans_enabled)")
				}
				out, err := a.Moderation.Ban(ctx, service.BanInput{
					UserID:       u.ID,
					Reason:       c.String("reason"),
					SendEmail:    c.Bool("email"),
					DurationDays: int(c.Int("days")),
					TestBan:      c.Bool("test"),
				})
				if err != nil {
					return err
				}
				return printJSON(out)
			})
		},
	}
}

func unbanCommand() *cli.Command {
	return &cli.Command{
		Name:      "unban",
		Usage:     "Lift a user's ban",
		ArgsUsage: "<email-or-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "email", Value: true, Usage: "notify the user"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			key := c.Args().First()
			if key == "" {
				return fmt.Errorf("email or ID is required")
			}
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				u, err := a.Users.Lookup(ctx, key)
				if err != nil {
					return err
				}
				out, err := a.Moderation.Unban(ctx, service.UnbanInput{
					UserID:    u.ID,
					SendEmail: c.Bool("email"),
				})
				if err != nil {
					return err
				}
				return printJSON(out)
			})
		},
	}
}

// withApp loads configuration, wires the application and runs fn. Pending
// notifications are flushed before returning.
func withApp(ctx context.Context, c *cli.Command, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	log.Logger = logger

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
