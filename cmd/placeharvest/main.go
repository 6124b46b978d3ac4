package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/octobees/placeharvest/internal/admin"
	apprun "github.com/octobees/placeharvest/internal/app"
	"github.com/octobees/placeharvest/internal/config"
	"github.com/octobees/placeharvest/internal/enrich"
	"github.com/octobees/placeharvest/internal/logging"
	"github.com/octobees/placeharvest/internal/pipeline"
	"github.com/octobees/placeharvest/internal/places"
	"github.com/octobees/placeharvest/internal/ratelimit"
	"github.com/octobees/placeharvest/internal/sink"
)

func main() {
	app := &cli.App{
		Name:  "placeharvest",
		Usage: "Collect and enrich business listings from the Google Places API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Search query, e.g. \"coffee shops\"",
			},
			&cli.StringFlag{
				Name:    "location",
				Aliases: []string{"l"},
				Usage:   "Search location, an address or \"lat,lng\" pair",
			},
			&cli.IntFlag{
				Name:    "max-results",
				Aliases: []string{"n"},
				Usage:   "Maximum number of places to collect",
			},
			&cli.IntFlag{
				Name:  "radius",
				Usage: "Search radius in meters",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Number of concurrent detail fetchers",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Base path for file outputs, without extension",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Minimum log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Human-readable console logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "placeharvest:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: c.Bool("pretty")})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AdminAddr != "" {
		srv := admin.New(cfg.AdminAddr)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("admin server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("admin server shutdown failed")
			}
		}()
	}

	client := places.NewGoogleClient(cfg.APIKey)
	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Interval)
	walker := pipeline.NewWalker(client, limiter)

	runID := uuid.New()
	policy := pipeline.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}
	fetcherOpts := []pipeline.FetcherOption{
		pipeline.WithRunID(runID),
		pipeline.WithPhoneRegion(cfg.PhoneRegion),
	}
	if cfg.EnrichEmails {
		fetcherOpts = append(fetcherOpts, pipeline.WithEmailFinder(enrich.NewWebsiteScanner()))
	}
	fetcher := pipeline.NewFetcher(client, limiter, policy, fetcherOpts...)
	pipe := pipeline.New(fetcher, cfg.Concurrency)

	sinks, closeSinks, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	runner := apprun.NewRunner(cfg, runID, client, limiter, walker, pipe, sinks)
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d collected, %d records, %d failures in %s\n",
		summary.RunID, summary.Collected, summary.Records, len(summary.Failures),
		summary.Duration.Round(time.Millisecond))
	return nil
}

// applyFlags lets CLI flags override whatever the environment provided.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("query") {
		cfg.Query = c.String("query")
	}
	if c.IsSet("location") {
		cfg.Location = c.String("location")
	}
	if c.IsSet("max-results") {
		cfg.MaxResults = c.Int("max-results")
	}
	if c.IsSet("radius") {
		cfg.RadiusMeters = c.Int("radius")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("out") {
		cfg.Output.File = c.String("out")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
}

func buildSinks(ctx context.Context, cfg *config.Config) ([]sink.Sink, func(), error) {
	var sinks []sink.Sink
	var closers []func()

	if cfg.Output.CSV {
		sinks = append(sinks, sink.NewCSVSink(cfg.Output.File))
	}
	if cfg.Output.JSON {
		sinks = append(sinks, sink.NewJSONSink(cfg.Output.File))
	}
	if cfg.Output.Postgres {
		pg, err := sink.NewPostgresSink(ctx, cfg.Output.DatabaseURL, cfg.Output.PostgresTable)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres sink: %w", err)
		}
		sinks = append(sinks, pg)
		closers = append(closers, pg.Close)
	}
	if cfg.Output.Elastic {
		es, err := sink.NewElasticSink(cfg.Output.ElasticURL, cfg.Output.ElasticIndex)
		if err != nil {
			return nil, nil, fmt.Errorf("elasticsearch sink: %w", err)
		}
		sinks = append(sinks, es)
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
