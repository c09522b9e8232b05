// Package envloader overlays environment variables on top of another
// configuration source.
package envloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ahrav/grid-enumerator/internal/config"
)

// Prefix is prepended to every environment variable, e.g.
// GRID_SOURCE_IMAGES_ENDPOINT.
const Prefix = "GRID"

// Loader reads a base configuration and then applies any GRID_* environment
// variables that are set. Credentials are usually supplied this way so they
// never need to live in a file.
type Loader struct {
	base config.Loader
	v    *viper.Viper
}

// New creates a Loader wrapping base.
func New(base config.Loader) *Loader {
	v := viper.New()
	v.SetEnvPrefix(Prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{base: base, v: v}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context) (*config.Config, error) {
	cfg, err := l.base.Load(ctx)
	if err != nil {
		return nil, err
	}

	setString(l.v, "source.images_endpoint", &cfg.Source.ImagesEndpoint)
	setString(l.v, "source.api_key", &cfg.Source.APIKey)
	setFloat(l.v, "source.rate_limit", &cfg.Source.RateLimit)
	if l.v.IsSet("source.request_timeout") {
		cfg.Source.RequestTimeout = l.v.GetDuration("source.request_timeout")
	}

	setString(l.v, "destination.loader_endpoint", &cfg.Destination.LoaderEndpoint)
	setString(l.v, "destination.metadata_endpoint", &cfg.Destination.MetadataEndpoint)
	setString(l.v, "destination.api_key", &cfg.Destination.APIKey)
	setFloat(l.v, "destination.rate_limit", &cfg.Destination.RateLimit)

	if l.v.IsSet("enumeration.page_size") {
		cfg.Enumeration.PageSize = l.v.GetInt("enumeration.page_size")
	}
	setString(l.v, "enumeration.initial_since", &cfg.Enumeration.InitialSince)
	setString(l.v, "enumeration.order_by", &cfg.Enumeration.OrderBy)

	setString(l.v, "migration.staging_dir", &cfg.Migration.StagingDir)
	setBool(l.v, "migration.keep_originals", &cfg.Migration.KeepOriginals)
	setBool(l.v, "migration.redeliver_duplicates", &cfg.Migration.RedeliverDuplicates)

	setString(l.v, "telemetry.service_name", &cfg.Telemetry.ServiceName)
	setString(l.v, "telemetry.exporter_endpoint", &cfg.Telemetry.ExporterEndpoint)
	setFloat(l.v, "telemetry.sampling_ratio", &cfg.Telemetry.SamplingRatio)
	setBool(l.v, "telemetry.insecure_exporter", &cfg.Telemetry.InsecureExporter)
	setString(l.v, "telemetry.log_level", &cfg.Telemetry.LogLevel)
	setString(l.v, "telemetry.debug_addr", &cfg.Telemetry.DebugAddr)

	cfg.ApplyDefaults()
	return cfg, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	return fmt.Sprintf("%s_%s", Prefix, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
}
