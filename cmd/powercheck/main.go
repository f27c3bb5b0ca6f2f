package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/arcgis"
	httpadapter "github.com/couchcryptid/power-outage-monitor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/power-outage-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/power-outage-monitor/internal/adapter/meraki"
	"github.com/couchcryptid/power-outage-monitor/internal/adapter/opsgenie"
	"github.com/couchcryptid/power-outage-monitor/internal/adapter/pge"
	"github.com/couchcryptid/power-outage-monitor/internal/adapter/prtg"
	"github.com/couchcryptid/power-outage-monitor/internal/adapter/sqlite"
	"github.com/couchcryptid/power-outage-monitor/internal/config"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
	"github.com/couchcryptid/power-outage-monitor/internal/pipeline"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	directory, err := sqlite.Open(ctx, cfg.SiteDBPath)
	if err != nil {
		logger.Error("failed to open site directory", "path", cfg.SiteDBPath, "error", err)
		os.Exit(1)
	}

	// Validated by config.Load.
	times, _ := domain.NewTimeNormalizer(cfg.DateTimezone, cfg.DateFormat)

	providers := []domain.OutageProvider{
		arcgis.NewOutageClient(cfg.GISURL, times, cfg.SourceTimeout, logger),
	}
	if cfg.PGEAPIKey != "" {
		providers = append(providers, pge.NewClient(cfg.PGEURL, cfg.PGEAPIKey, times, cfg.SourceTimeout))
	} else {
		logger.Info("pge outage feed disabled, PGE_API_KEY not set")
	}
	outages := pipeline.NewOutageService(cfg.OutageProvider, cfg.SourceTimeout, logger, metrics, providers...)

	var geocoder domain.Geocoder
	if cfg.GeocodeURL != "" {
		client := arcgis.NewGeocoder(cfg.GeocodeURL, cfg.GeocodeToken, cfg.GeocodeMinScore, cfg.SourceTimeout, metrics, logger)
		geocoder = arcgis.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
		logger.Info("geocoding enabled", "cache_size", cfg.GeocodeCacheSize, "min_score", cfg.GeocodeMinScore)
	} else {
		logger.Info("geocoding disabled")
	}
	locator := pipeline.NewSiteLocator(directory, geocoder, cfg.SourceTimeout, logger)

	var sensors domain.SensorSource
	if cfg.PRTGEnabled() {
		sensors = prtg.NewClient(cfg.PRTGURL, cfg.PRTGUsername, cfg.PRTGPasshash, cfg.SourceTimeout)
	} else {
		logger.Info("prtg telemetry disabled")
	}
	var inventory domain.AccessPointInventory
	if cfg.MerakiEnabled() {
		inventory = meraki.NewClient(cfg.MerakiURL, cfg.MerakiAPIKey, cfg.MerakiOrgID, cfg.SourceTimeout)
	} else {
		logger.Info("meraki access-point status disabled")
	}
	naming := pipeline.SensorNaming{
		PiSensor:    cfg.PRTGPiSensor,
		PiDevice:    cfg.PRTGPiDevice,
		ProbeSensor: cfg.PRTGProbeSensor,
		ProbeGroup:  cfg.PRTGProbeDevice,
	}
	telemetry := pipeline.NewTelemetryResolver(sensors, inventory, naming, cfg.SourceTimeout, logger, metrics)

	var incidents domain.IncidentManager
	if cfg.OpsgenieEnabled() {
		incidents = opsgenie.NewClient(cfg.OpsgenieURL, cfg.OpsgenieAPIKey, cfg.OpsgenieIDType, cfg.SourceTimeout)
	} else {
		logger.Info("opsgenie annotation disabled")
	}
	annotator := pipeline.NewAnnotator(incidents, cfg.TagRequiresDetails, cfg.SourceTimeout, logger, metrics)

	opts := []pipeline.Option{pipeline.WithTimeNormalizer(times)}
	ready := readiness{}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer, cfg.SourceTimeout))
		ready = append(ready, writer)
		logger.Info("verdict events enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(locator, outages, telemetry, annotator, cfg.ConfidencePolicy, logger, metrics, opts...)
	ready = append(ready, p)

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, p, cfg.APIToken, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := directory.Close(); err != nil {
		logger.Error("site directory close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// readiness is ready only when every dependency is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
