package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	APIToken        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// SourceTimeout bounds every call to an outside system.
	SourceTimeout time.Duration

	// Time normalization for feed timestamps.
	DateTimezone string
	DateFormat   string

	OutageProvider     domain.ProviderName
	ConfidencePolicy   domain.Policy
	TagRequiresDetails bool

	SiteDBPath string

	GISURL    string
	PGEURL    string
	PGEAPIKey string

	// ArcGIS geocoding configuration.
	GeocodeURL       string
	GeocodeToken     string
	GeocodeMinScore  float64
	GeocodeCacheSize int

	PRTGURL         string
	PRTGUsername    string
	PRTGPasshash    string
	PRTGPiSensor    string
	PRTGPiDevice    string
	PRTGProbeSensor string
	PRTGProbeDevice string

	MerakiURL    string
	MerakiAPIKey string
	MerakiOrgID  string

	OpsgenieURL    string
	OpsgenieAPIKey string
	OpsgenieIDType string

	KafkaBrokers []string
	KafkaTopic   string
}

// PRTGEnabled reports whether ping and probe telemetry is configured.
func (c *Config) PRTGEnabled() bool { return c.PRTGURL != "" }

// MerakiEnabled reports whether the access-point source is configured.
func (c *Config) MerakiEnabled() bool { return c.MerakiAPIKey != "" && c.MerakiOrgID != "" }

// OpsgenieEnabled reports whether incident annotation is configured.
func (c *Config) OpsgenieEnabled() bool { return c.OpsgenieAPIKey != "" }

// KafkaEnabled reports whether verdict events are published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SOURCE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_TIMEOUT: %w", err)
	}
	if sourceTimeout <= 0 {
		return nil, fmt.Errorf("invalid SOURCE_TIMEOUT: must be positive, got %s", sourceTimeout)
	}

	provider, err := domain.ParseProviderName(sharedcfg.EnvOrDefault("OUTAGE_PROVIDER", string(domain.ProviderGIS)))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTAGE_PROVIDER: %w", err)
	}

	policy, err := domain.ParsePolicy(sharedcfg.EnvOrDefault("CONFIDENCE_POLICY", string(domain.PolicyStrictMajority)))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIDENCE_POLICY: %w", err)
	}

	tagRequiresDetails, err := strconv.ParseBool(sharedcfg.EnvOrDefault("TAG_REQUIRES_DETAILS", "true"))
	if err != nil {
		return nil, errors.New("invalid TAG_REQUIRES_DETAILS")
	}

	minScore, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODE_MIN_SCORE", "90"), 64)
	if err != nil || minScore < 0 || minScore > 100 {
		return nil, errors.New("invalid GEOCODE_MIN_SCORE")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APIToken:        os.Getenv("API_TOKEN"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		SourceTimeout:   sourceTimeout,

		DateTimezone: os.Getenv("DATE_TIMEZONE"),
		DateFormat:   sharedcfg.EnvOrDefault("DATE_FORMAT", domain.DefaultTimeFormat),

		OutageProvider:     provider,
		ConfidencePolicy:   policy,
		TagRequiresDetails: tagRequiresDetails,

		SiteDBPath: sharedcfg.EnvOrDefault("SITE_DB_PATH", "sites.db"),

		GISURL:    sharedcfg.EnvOrDefault("GIS_URL", "https://services.arcgis.com/BLN4oKB0N1YSgvY8/arcgis/rest/services/Power_Outages_(View)/FeatureServer/0/query"),
		PGEURL:    sharedcfg.EnvOrDefault("PGE_URL", "https://apim.cloud.pge.com/cocoutage/outages/getOutagesRegions"),
		PGEAPIKey: os.Getenv("PGE_API_KEY"),

		GeocodeURL:       sharedcfg.EnvOrDefault("GEOCODE_URL", "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer/findAddressCandidates"),
		GeocodeToken:     os.Getenv("GEOCODE_TOKEN"),
		GeocodeMinScore:  minScore,
		GeocodeCacheSize: parsePositiveInt("GEOCODE_CACHE_SIZE", 1000),

		PRTGURL:         os.Getenv("PRTG_URL"),
		PRTGUsername:    os.Getenv("PRTG_USERNAME"),
		PRTGPasshash:    os.Getenv("PRTG_PASSHASH"),
		PRTGPiSensor:    sharedcfg.EnvOrDefault("PRTG_PI_SENSOR", "Ping"),
		PRTGPiDevice:    sharedcfg.EnvOrDefault("PRTG_PI_DEVICE", "PI - LTE"),
		PRTGProbeSensor: sharedcfg.EnvOrDefault("PRTG_PROBE_SENSOR", "Probe Health"),
		PRTGProbeDevice: sharedcfg.EnvOrDefault("PRTG_PROBE_DEVICE", "Probe Device"),

		MerakiURL:    sharedcfg.EnvOrDefault("MERAKI_URL", "https://api.meraki.com/api/v1"),
		MerakiAPIKey: os.Getenv("MERAKI_API_KEY"),
		MerakiOrgID:  os.Getenv("MERAKI_ORG_ID"),

		OpsgenieURL:    sharedcfg.EnvOrDefault("OPSGENIE_URL", "https://api.opsgenie.com"),
		OpsgenieAPIKey: os.Getenv("OPSGENIE_API_KEY"),
		OpsgenieIDType: sharedcfg.EnvOrDefault("OPSGENIE_ID_TYPE", "id"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "site-power-checks"),
	}

	switch cfg.OpsgenieIDType {
	case "id", "tiny", "alias":
	default:
		return nil, fmt.Errorf("invalid OPSGENIE_ID_TYPE %q: use one of id, tiny, alias", cfg.OpsgenieIDType)
	}
	if _, err := domain.NewTimeNormalizer(cfg.DateTimezone, cfg.DateFormat); err != nil {
		return nil, fmt.Errorf("invalid DATE_TIMEZONE or DATE_FORMAT: %w", err)
	}
	if cfg.PRTGEnabled() && cfg.PRTGUsername == "" {
		return nil, errors.New("PRTG_URL is set but PRTG_USERNAME is not set")
	}
	if (cfg.MerakiAPIKey == "") != (cfg.MerakiOrgID == "") {
		return nil, errors.New("MERAKI_API_KEY and MERAKI_ORG_ID must be set together")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
