package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "secreto",
		Usage:   "anonymous confession moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "bot-token",
			Usage:    "Telegram Bot API token",
			Required: true,
			EnvVars:  []string{"BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "telegram-host",
			Usage:   "base URL of the Bot API (override for self-hosted API servers)",
			Value:   "https://api.telegram.org",
			EnvVars: []string{"TELEGRAM_HOST"},
		},
		&cli.Int64Flag{
			Name:     "channel-id",
			Usage:    "chat id of the channel accepted confessions are published to",
			Required: true,
			EnvVars:  []string{"CHANNEL_ID"},
		},
		&cli.Int64Flag{
			Name:     "main-admin",
			Usage:    "user id of the main admin (roster and ban management)",
			Required: true,
			EnvVars:  []string{"MAIN_ADMIN"},
		},
		&cli.Int64SliceFlag{
			Name:    "moderators",
			Usage:   "user ids of the moderator pool",
			EnvVars: []string{"MODERATORS"},
		},
		&cli.Int64SliceFlag{
			Name:    "privileged-moderators",
			Usage:   "subset of moderators allowed to see submitter identity",
			EnvVars: []string{"PRIVILEGED_MODERATORS"},
		},
		&cli.StringFlag{
			Name:    "bot-link",
			Usage:   "public link to this bot, appended to published confessions",
			EnvVars: []string{"BOT_LINK"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for the ban registry (in-memory store when empty)",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the webhook and HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"SECRETO_BIND"},
		},
		&cli.StringFlag{
			Name:    "webhook-url",
			Usage:   "public URL to register with Telegram on startup (skipped when empty)",
			EnvVars: []string{"WEBHOOK_URL"},
		},
		&cli.DurationFlag{
			Name:    "reject-intent-ttl",
			Usage:   "how long a moderator's reject-in-progress holds a confession before it returns to the pool",
			Value:   30 * time.Minute,
			EnvVars: []string{"REJECT_INTENT_TTL"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			EnvVars: []string{"SECRETO_DEBUG"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logLevel := slog.LevelInfo
		if cctx.Bool("debug") {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otltrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("secreto"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			Logger:       logger,
			BotToken:     cctx.String("bot-token"),
			TelegramHost: cctx.String("telegram-host"),
			ChannelID:    cctx.Int64("channel-id"),
			MainAdmin:    cctx.Int64("main-admin"),
			Moderators:   cctx.Int64Slice("moderators"),
			Privileged:   cctx.Int64Slice("privileged-moderators"),
			BotLink:      cctx.String("bot-link"),
			RedisURL:     cctx.String("redis-url"),
			IntentTTL:    cctx.Duration("reject-intent-ttl"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if whURL := cctx.String("webhook-url"); whURL != "" {
			if err := srv.RegisterWebhook(ctx, whURL); err != nil {
				return err
			}
		}

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return srv.RunAPI(cctx.String("bind"))
		})
		eg.Go(func() error {
			return srv.RunExpireIntents(ctx)
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return eg.Wait()
	},
}
