// Package config loads and validates intake service configuration via Viper.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/medregs/guidance-intake/internal/intake"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Program  ProgramConfig           `mapstructure:"program"`
	Server   ServerConfig            `mapstructure:"server"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Database DatabaseConfig          `mapstructure:"database"`
	Render   RenderConfig            `mapstructure:"render"`
	Uploader UploaderConfig          `mapstructure:"uploader"`
	PubSub   PubSubConfig            `mapstructure:"pubsub"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
}

// ProgramConfig identifies the ingestion program all records belong to.
type ProgramConfig struct {
	ID        string `mapstructure:"id"`
	DocFormat string `mapstructure:"doc_format"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig configures the outbound fetch client.
type HTTPConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	MaxRetries         int    `mapstructure:"max_retries"`
	Concurrency        int    `mapstructure:"concurrency"`
	RateLimitPerDomain int    `mapstructure:"rate_limit_per_domain"`
}

// CacheConfig sets the local artifact cache location.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig controls access to the document store.
type DatabaseConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// RenderConfig configures HTML-to-PDF rendering.
type RenderConfig struct {
	Headless          bool    `mapstructure:"headless"`
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	MaxParallel       int     `mapstructure:"max_parallel"`
	DomainQPS         float64 `mapstructure:"domain_qps"`
}

// UploaderConfig selects the artifact upload destination.
type UploaderConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for ingest-event notifications.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SourceConfig describes one authority listing page.
type SourceConfig struct {
	URL              string `mapstructure:"url"`
	Country          string `mapstructure:"country"`
	AgencyID         string `mapstructure:"agency_id"`
	StartingDocketID int64  `mapstructure:"starting_docket_id"`
	Selector         string `mapstructure:"selector"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper unmarshals and validates a Config from an initialized Viper.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers the defaults on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("program.id", "intl-guidance")
	v.SetDefault("program.doc_format", "pdf")
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.user_agent", "guidance-intake/1.0 (+https://github.com/medregs/guidance-intake)")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.concurrency", 2)
	v.SetDefault("http.rate_limit_per_domain", 1)
	v.SetDefault("cache.dir", "data/cache")
	v.SetDefault("database.provider", "memory")
	v.SetDefault("database.table", "international_documents")
	v.SetDefault("render.headless", false)
	v.SetDefault("render.nav_timeout_seconds", 45)
	v.SetDefault("render.max_parallel", 2)
	v.SetDefault("render.domain_qps", 0.5)
	v.SetDefault("uploader.provider", "noop")
	v.SetDefault("uploader.prefix", "INTERNATIONAL_DOCS")
	v.SetDefault("pubsub.provider", "memory")
	v.SetDefault("pubsub.topic_name", "intake-events")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Program.ID == "" {
		return fmt.Errorf("program.id is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	if c.Database.Provider == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.provider is postgres")
	}
	if c.Uploader.Provider == "gcs" && c.Uploader.Bucket == "" {
		return fmt.Errorf("uploader.bucket is required when uploader.provider is gcs")
	}
	if c.PubSub.Provider == "pubsub" && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required when pubsub.provider is pubsub")
	}
	for name, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("sources.%s.url is required", name)
		}
		if src.Country == "" {
			return fmt.Errorf("sources.%s.country is required", name)
		}
	}
	return nil
}

// RequestTimeout returns the fetch timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// SourceList converts the source map into a deterministic, name-sorted slice.
func (c Config) SourceList() []intake.Source {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]intake.Source, 0, len(names))
	for _, name := range names {
		src := c.Sources[name]
		starting := src.StartingDocketID
		if starting <= 0 {
			starting = 1000
		}
		out = append(out, intake.Source{
			Name:             name,
			URL:              src.URL,
			Country:          src.Country,
			AgencyID:         src.AgencyID,
			StartingDocketID: starting,
			Selector:         src.Selector,
			TimeoutSeconds:   src.TimeoutSeconds,
		})
	}
	return out
}

// DefaultSources returns the built-in authority listing pages, used when no
// sources are configured.
func DefaultSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		"nigeria-nafdac": {
			URL:              "https://nafdac.gov.ng/resources/guidelines/",
			Country:          "Nigeria",
			AgencyID:         "NAFDAC",
			StartingDocketID: 1001,
		},
		"south-africa-sahpra": {
			URL:              "https://www.sahpra.org.za/document-category/guidelines/",
			Country:          "South Africa",
			AgencyID:         "SAHPRA",
			StartingDocketID: 2001,
		},
		"singapore-hsa": {
			URL:              "https://www.hsa.gov.sg/medical-devices/guidance-documents",
			Country:          "Singapore",
			AgencyID:         "HSA",
			StartingDocketID: 3001,
		},
		"thailand-fda": {
			URL:              "https://en.fda.moph.go.th/medical-devices/",
			Country:          "Thailand",
			AgencyID:         "TH-FDA",
			StartingDocketID: 4001,
		},
		"ireland-hpra": {
			URL:              "https://www.hpra.ie/homepage/medical-devices/guidance-documents",
			Country:          "Ireland",
			AgencyID:         "HPRA",
			StartingDocketID: 5001,
		},
		"canada-hc": {
			URL:              "https://www.canada.ca/en/health-canada/services/drugs-health-products/medical-devices/application-information/guidance-documents.html",
			Country:          "Canada",
			AgencyID:         "HC-SC",
			StartingDocketID: 6001,
		},
		"belgium-afmps": {
			URL:              "https://www.afmps.be/fr/humain/produits_de_sante/dispositifs_medicaux",
			Country:          "Belgium",
			AgencyID:         "AFMPS",
			StartingDocketID: 7001,
		},
	}
}
