package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/config"
	"github.com/oscillatelabsllc/nflpicker/internal/db"
	"github.com/oscillatelabsllc/nflpicker/internal/logger"
	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/odds"
	"github.com/oscillatelabsllc/nflpicker/internal/scheduler"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	day := flag.String("day", "", "Only keep games on this weekday (e.g. thursday, sunday, monday)")
	baseURL := flag.String("base-url", odds.DefaultBaseURL, "The Odds API base URL")
	schedule := flag.String("schedule", "", "Keep running and pull on this cron schedule (with seconds field, e.g. \"0 0 9 * * TUE,THU\")")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	var blobs storage.BlobStore
	if cfg.StorageBackend == config.BackendDuckDB {
		store, err := db.NewStore(cfg.DuckDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		blobs = store
	} else {
		store, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open data directory")
		}
		blobs = store
	}
	defer blobs.Close()

	calendar := odds.DefaultCalendar()
	if cfg.Season != calendar.Season {
		log.Warn().Int("season", cfg.Season).Int("calendar_season", calendar.Season).Msg("No calendar for configured season, using default")
	}

	client := odds.NewClient(cfg.OddsAPIKey, *baseURL, log)
	ingestor := odds.NewIngestor(client, odds.NewStore(blobs), calendar)

	if *schedule != "" {
		runScheduled(*schedule, &odds.PullJob{Ingestor: ingestor, Day: *day, Log: log}, log)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	key, slate, err := ingestor.Pull(ctx, time.Now(), *day)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to pull lines")
	}

	printSummary(key, slate)
}

func runScheduled(schedule string, job *odds.PullJob, log zerolog.Logger) {
	sched := scheduler.New(log)
	if err := sched.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Invalid schedule")
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
}

func printSummary(key string, slate models.Slate) {
	meta := slate.Meta
	fmt.Printf("Data saved to %s\n", key)
	fmt.Printf("Week: %d (%s to %s)\n", meta.Week, meta.WeekStart, meta.WeekEnd)
	if meta.DayFilter != "all" {
		fmt.Printf("Day: %s\n", meta.DayFilter)
	}
	fmt.Printf("Games found: %d\n", meta.GamesCount)

	for _, g := range slate.Games {
		fmt.Printf("\n%s @ %s\n", g.AwayTeam, g.HomeTeam)
		if kickoff, err := g.Kickoff(); err == nil {
			fmt.Printf("  Time: %s\n", kickoff.In(odds.Pacific).Format("Mon Jan 02, 03:04 PM PT"))
		}
		if g.HomeSpread != nil {
			fmt.Printf("  Spread: %s %+.1f\n", g.HomeTeam, *g.HomeSpread)
		}
		if g.Total != nil {
			fmt.Printf("  Total: %.1f\n", *g.Total)
		}
	}
}
