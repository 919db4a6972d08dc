package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"climate-odds/internal/config"
	"climate-odds/internal/models"
	"climate-odds/internal/repository"
	"climate-odds/internal/services"
	"climate-odds/internal/upstream"
	"climate-odds/pkg/logging"
	"climate-odds/pkg/metrics"
)

// One-shot analysis runner: executes a single analysis against the upstream
// archive through the same job pipeline as the server, backed by the
// in-memory store, and prints the terminal job as JSON.
func main() {
	lat := flag.Float64("lat", 0, "Latitude of the point of interest")
	lon := flag.Float64("lon", 0, "Longitude of the point of interest")
	month := flag.Int("month", 1, "Target month (1-12)")
	day := flag.Int("day", 1, "Target day of month (1-31)")
	startYear := flag.Int("start-year", 2000, "First historical year")
	endYear := flag.Int("end-year", 2020, "Last historical year")
	halfWindow := flag.Int("half-window", 10, "Days on each side of the target date")
	factorList := flag.String("factors", "temperature,precipitation,windspeed,humidity", "Comma-separated factors to analyze")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel := logging.WarnLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}
	logger := logging.NewStructuredLogger("climate-odds-cli", "1.0.0", logLevel)
	metricsCollector := metrics.NewCollector("climate_odds_cli")

	var factors []models.Factor
	for _, f := range strings.Split(*factorList, ",") {
		if f = strings.TrimSpace(f); f != "" {
			factors = append(factors, models.Factor(f))
		}
	}

	req := models.AnalyzeRequest{
		Latitude:       *lat,
		Longitude:      *lon,
		Month:          *month,
		Day:            *day,
		StartYear:      *startYear,
		EndYear:        *endYear,
		HalfWindowDays: *halfWindow,
		Factors:        factors,
	}

	retry := upstream.RetryPolicy{
		MaxAttempts: cfg.Upstream.RetryMaxAttempts,
		BaseDelay:   cfg.Upstream.RetryBaseDelay,
		Multiplier:  cfg.Upstream.RetryMultiplier,
	}
	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, retry, nil, logger, metricsCollector)
	fetcher := upstream.NewWindowFetcher(client, logger)

	repo := repository.NewMemoryJobRepository()
	runner := services.NewGoroutineRunner(logger, metricsCollector)
	service := services.NewAnalyzeService(repo, fetcher, runner, logger, metricsCollector)

	ctx := context.Background()
	id, err := service.Submit(ctx, "cli", &req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to submit analysis: %v\n", err)
		os.Exit(1)
	}

	runner.Wait()

	job, err := service.GetByID(ctx, "cli", id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load analysis result: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode analysis result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if job.Status != models.StatusOK {
		os.Exit(1)
	}
}
