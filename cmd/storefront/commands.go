package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	delivery "github.com/kaushiksanil12/ECOMBackend/internal/delivery/http"
	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging/kafka"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the postgres schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					cfg, _, err := loadConfig(c)
					if err != nil {
						return err
					}
					db, err := openDB(c.Context, cfg)
					if err != nil {
						return err
					}
					defer db.Close()
					return postgres.MigrateUp(db)
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of migrations to roll back", Value: 1},
				},
				Action: func(c *cli.Context) error {
					cfg, _, err := loadConfig(c)
					if err != nil {
						return err
					}
					db, err := openDB(c.Context, cfg)
					if err != nil {
						return err
					}
					defer db.Close()
					return postgres.MigrateDown(db, c.Int("steps"))
				},
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "issue a signed bearer token for a user id",
		ArgsUsage: "<user-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Usage: "USER or ADMIN", Value: string(entity.RoleUser)},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT secret is not configured")
			}
			userID := c.Args().First()
			if userID == "" {
				return cli.Exit("user id is required", 2)
			}
			role := entity.Role(c.String("role"))
			if role != entity.RoleUser && role != entity.RoleAdmin {
				return cli.Exit(fmt.Sprintf("unknown role %q", role), 2)
			}
			token, err := delivery.NewAuthenticator(cfg.JWTSecret).IssueToken(userID, role, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "inspect order events on the broker",
		Subcommands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "print order events until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Usage: "consumer group", Value: "storefront-tail"},
				},
				Action: tailEvents,
			},
		},
	}
}

func tailEvents(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("events tail needs Kafka brokers; the in-process bus is not shared between processes")
	}
	broker := kafka.NewKafkaBroker(cfg.KafkaBrokers)
	defer broker.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{}, len(messaging.OrderTopics))
	for _, topic := range messaging.OrderTopics {
		go func(topic string) {
			defer func() { done <- struct{}{} }()
			broker.Consume(ctx, topic, c.String("group"), func(_ context.Context, payload []byte) error {
				_, err := fmt.Fprintf(os.Stdout, "%s\t%s\n", topic, payload)
				return err
			})
		}(topic)
	}
	slog.Info("Tailing order events", "topics", messaging.OrderTopics)
	for range messaging.OrderTopics {
		<-done
	}
	return nil
}
