package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

// Default values applied by Default and by loaders for omitted fields.
const (
	DefaultOrderBy          = "uploadTime"
	DefaultListPageSize     = 100
	DefaultMigratePageSize  = 10
	DefaultStagingDir       = "originals"
	DefaultSamplingRatio    = 1.0
	DefaultLogLevel         = "info"
	DefaultTelemetryService = "grid-enumerator"
)

// Config represents the top-level configuration.
type Config struct {
	Source      SourceConfig      `yaml:"source" validate:"required"`
	Destination DestinationConfig `yaml:"destination"`
	Enumeration EnumerationConfig `yaml:"enumeration" validate:"required"`
	Migration   MigrationConfig   `yaml:"migration"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// SourceConfig describes the media API that is enumerated.
type SourceConfig struct {
	// ImagesEndpoint is the listing endpoint, e.g.
	// https://example.hostedgrid.app/media-api/images.
	ImagesEndpoint string `yaml:"images_endpoint" validate:"required,url"`

	// APIKey is sent in the media key header on every listing request.
	APIKey string `yaml:"api_key"`

	// RateLimit is the maximum number of requests per second.
	// Zero (or omitted) means no rate limiting.
	RateLimit float64 `yaml:"rate_limit,omitempty" validate:"gte=0"`

	// RequestTimeout bounds every HTTP request. Zero means no timeout.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty" validate:"gte=0"`
}

// DestinationConfig describes the media system records are migrated to.
// It is only required by the migration run.
type DestinationConfig struct {
	LoaderEndpoint   string  `yaml:"loader_endpoint" validate:"omitempty,url"`
	MetadataEndpoint string  `yaml:"metadata_endpoint" validate:"omitempty,url"`
	APIKey           string  `yaml:"api_key"`
	RateLimit        float64 `yaml:"rate_limit,omitempty" validate:"gte=0"`
}

// EnumerationConfig tunes the pagination walk.
type EnumerationConfig struct {
	// PageSize is the number of records requested per page. Larger pages
	// mean fewer round trips but a higher chance that a whole page shares
	// one upload time, which stalls pagination. Zero selects the default of
	// the run (DefaultListPageSize or DefaultMigratePageSize).
	PageSize int `yaml:"page_size,omitempty" validate:"gte=0"`

	// InitialSince is the first lower bound. Defaults to the epoch sentinel.
	InitialSince string `yaml:"initial_since,omitempty"`

	// OrderBy is the field the server sorts by.
	OrderBy string `yaml:"order_by" validate:"required"`
}

// MigrationConfig holds options only the migration run uses.
type MigrationConfig struct {
	// StagingDir is where originals are downloaded before re-upload.
	StagingDir string `yaml:"staging_dir"`

	// KeepOriginals leaves downloaded files in StagingDir after upload.
	KeepOriginals bool `yaml:"keep_originals,omitempty"`

	// RedeliverDuplicates invokes the handler for records re-fetched by
	// overlap correction. Only safe when destination writes are idempotent.
	RedeliverDuplicates bool `yaml:"redeliver_duplicates,omitempty"`
}

// TelemetryConfig configures logging, tracing and metrics export.
type TelemetryConfig struct {
	ServiceName      string  `yaml:"service_name"`
	ExporterEndpoint string  `yaml:"exporter_endpoint,omitempty"`
	SamplingRatio    float64 `yaml:"sampling_ratio" validate:"gte=0,lte=1"`
	InsecureExporter bool    `yaml:"insecure_exporter,omitempty"`
	LogLevel         string  `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// DebugAddr, when set, serves runtime metrics and charts for the length
	// of the run, e.g. "localhost:6060".
	DebugAddr string `yaml:"debug_addr,omitempty" validate:"omitempty,hostname_port"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Enumeration: EnumerationConfig{
			InitialSince: enumeration.EpochCursor().String(),
			OrderBy:      DefaultOrderBy,
		},
		Migration: MigrationConfig{StagingDir: DefaultStagingDir},
		Telemetry: TelemetryConfig{
			ServiceName:   DefaultTelemetryService,
			SamplingRatio: DefaultSamplingRatio,
			LogLevel:      DefaultLogLevel,
		},
	}
}

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Enumeration.InitialSince == "" {
		c.Enumeration.InitialSince = d.Enumeration.InitialSince
	}
	if c.Enumeration.OrderBy == "" {
		c.Enumeration.OrderBy = d.Enumeration.OrderBy
	}
	if c.Migration.StagingDir == "" {
		c.Migration.StagingDir = d.Migration.StagingDir
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = d.Telemetry.ServiceName
	}
	if c.Telemetry.LogLevel == "" {
		c.Telemetry.LogLevel = d.Telemetry.LogLevel
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that InitialSince parses as a cursor.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Since(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateMigration additionally checks the destination settings.
func (c *Config) ValidateMigration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errs []error
	if c.Destination.LoaderEndpoint == "" {
		errs = append(errs, errors.New("destination.loader_endpoint is required"))
	}
	if c.Destination.MetadataEndpoint == "" {
		errs = append(errs, errors.New("destination.metadata_endpoint is required"))
	}
	if c.Migration.StagingDir == "" {
		errs = append(errs, errors.New("migration.staging_dir is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid migration configuration: %w", err)
	}
	return nil
}

// PageSizeOr returns the configured page size, or fallback when unset.
func (e EnumerationConfig) PageSizeOr(fallback int) int {
	if e.PageSize > 0 {
		return e.PageSize
	}
	return fallback
}

// Since returns the configured initial cursor.
func (c *Config) Since() (enumeration.Cursor, error) {
	if c.Enumeration.InitialSince == "" {
		return enumeration.EpochCursor(), nil
	}
	return enumeration.ParseCursor(c.Enumeration.InitialSince)
}

// DeliveryPolicy maps the migration option onto the engine policy.
func (c *Config) DeliveryPolicy() enumeration.DeliveryPolicy {
	if c.Migration.RedeliverDuplicates {
		return enumeration.DeliverAll
	}
	return enumeration.DeliverUnique
}
