package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Source.ImagesEndpoint = "https://source.example.com/media-api/images"
	cfg.Source.APIKey = "key"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults with endpoint are valid", mutate: func(*Config) {}},
		{
			name:    "missing source endpoint",
			mutate:  func(c *Config) { c.Source.ImagesEndpoint = "" },
			wantErr: true,
		},
		{
			name:    "source endpoint not a url",
			mutate:  func(c *Config) { c.Source.ImagesEndpoint = "not a url" },
			wantErr: true,
		},
		{
			name:    "negative page size",
			mutate:  func(c *Config) { c.Enumeration.PageSize = -1 },
			wantErr: true,
		},
		{
			name:    "missing order key",
			mutate:  func(c *Config) { c.Enumeration.OrderBy = "" },
			wantErr: true,
		},
		{
			name:    "unparsable initial since",
			mutate:  func(c *Config) { c.Enumeration.InitialSince = "last tuesday" },
			wantErr: true,
		},
		{
			name:    "sampling ratio above one",
			mutate:  func(c *Config) { c.Telemetry.SamplingRatio = 1.5 },
			wantErr: true,
		},
		{
			name:    "debug address without port",
			mutate:  func(c *Config) { c.Telemetry.DebugAddr = "localhost" },
			wantErr: true,
		},
		{
			name:   "debug address with port",
			mutate: func(c *Config) { c.Telemetry.DebugAddr = "localhost:6060" },
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Telemetry.LogLevel = "chatty" },
			wantErr: true,
		},
		{
			name:    "destination endpoint must be a url when set",
			mutate:  func(c *Config) { c.Destination.LoaderEndpoint = "::::" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_ValidateMigration(t *testing.T) {
	cfg := validConfig()
	err := cfg.ValidateMigration()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader_endpoint")
	assert.Contains(t, err.Error(), "metadata_endpoint")

	cfg.Destination.LoaderEndpoint = "https://dest.example.com/image-loader/images"
	cfg.Destination.MetadataEndpoint = "https://dest.example.com/metadata-editor/metadata/"
	assert.NoError(t, cfg.ValidateMigration())
}

func TestConfig_Helpers(t *testing.T) {
	cfg := validConfig()

	since, err := cfg.Since()
	require.NoError(t, err)
	assert.True(t, enumeration.EpochCursor().Equal(since))

	cfg.Enumeration.InitialSince = ""
	since, err = cfg.Since()
	require.NoError(t, err)
	assert.True(t, enumeration.EpochCursor().Equal(since))

	assert.Equal(t, DefaultListPageSize, cfg.Enumeration.PageSizeOr(DefaultListPageSize))
	cfg.Enumeration.PageSize = 7
	assert.Equal(t, 7, cfg.Enumeration.PageSizeOr(DefaultMigratePageSize))

	assert.Equal(t, enumeration.DeliverUnique, cfg.DeliveryPolicy())
	cfg.Migration.RedeliverDuplicates = true
	assert.Equal(t, enumeration.DeliverAll, cfg.DeliveryPolicy())
}

func TestDefaultLoader(t *testing.T) {
	cfg, err := DefaultLoader{}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultOrderBy, cfg.Enumeration.OrderBy)
	assert.Equal(t, DefaultStagingDir, cfg.Migration.StagingDir)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultOrderBy, cfg.Enumeration.OrderBy)
	assert.Equal(t, DefaultLogLevel, cfg.Telemetry.LogLevel)
	assert.Equal(t, DefaultTelemetryService, cfg.Telemetry.ServiceName)
	assert.Equal(t, enumeration.EpochCursor().String(), cfg.Enumeration.InitialSince)
}
