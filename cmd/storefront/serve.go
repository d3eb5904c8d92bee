package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/urfave/cli/v2"

	"github.com/kaushiksanil12/ECOMBackend/internal/config"
	delivery "github.com/kaushiksanil12/ECOMBackend/internal/delivery/http"
	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging"
)

const auditGroup = "storefront-audit"

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "apply pending migrations on start", Value: true},
			&cli.BoolFlag{Name: "seed", Usage: "seed demo data into an empty catalog"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT secret is not configured")
	}

	ctx := c.Context
	a, err := newApp(ctx, cfg, logger, c.Bool("migrate"))
	if err != nil {
		return err
	}
	if c.Bool("seed") || cfg.Store == config.StoreMemory {
		if err := seed(ctx, a); err != nil {
			a.Close()
			return err
		}
	}

	auditCtx, stopAudit := context.WithCancel(context.Background())
	for _, topic := range messaging.OrderTopics {
		go a.broker.Consume(auditCtx, topic, auditGroup, auditHandler(topic))
	}

	handler := delivery.NewHandler(a.products, a.categories, a.orders, delivery.NewAuthenticator(cfg.JWTSecret), a.store)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: delivery.NewRouter(handler),
	}

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"storefront": func(ctx context.Context) error {
				slog.Info("Shutting down...")
				err := srv.Shutdown(ctx)
				stopAudit()
				return errors.Join(err, a.Close())
			},
		},
	)

	exitCode := <-wait
	slog.Info("Storefront exited", "code", exitCode)
	os.Exit(exitCode)
	return nil
}

// auditHandler logs every order lifecycle event the process sees.
func auditHandler(topic string) func(ctx context.Context, payload []byte) error {
	return func(_ context.Context, payload []byte) error {
		var envelope struct {
			OrderID     string             `json:"order_id"`
			OrderNumber string             `json:"order_number"`
			To          entity.OrderStatus `json:"to"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return fmt.Errorf("failed to unmarshal %s event: %w", topic, err)
		}
		slog.Info("Order event",
			"topic", topic,
			"order_id", envelope.OrderID,
			"order_number", envelope.OrderNumber,
			"to", envelope.To,
		)
		return nil
	}
}
