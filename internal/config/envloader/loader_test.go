package envloader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/grid-enumerator/internal/config"
)

type failingLoader struct{}

func (failingLoader) Load(context.Context) (*config.Config, error) {
	return nil, errors.New("boom")
}

func TestLoader_OverlaysEnvironment(t *testing.T) {
	t.Setenv(EnvName("source.images_endpoint"), "https://env.example.com/media-api/images")
	t.Setenv(EnvName("source.api_key"), "env-key")
	t.Setenv(EnvName("source.request_timeout"), "45s")
	t.Setenv(EnvName("destination.api_key"), "dest-key")
	t.Setenv(EnvName("enumeration.page_size"), "3")
	t.Setenv(EnvName("migration.redeliver_duplicates"), "true")
	t.Setenv(EnvName("telemetry.sampling_ratio"), "0.25")

	cfg, err := New(config.DefaultLoader{}).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/media-api/images", cfg.Source.ImagesEndpoint)
	assert.Equal(t, "env-key", cfg.Source.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Source.RequestTimeout)
	assert.Equal(t, "dest-key", cfg.Destination.APIKey)
	assert.Equal(t, 3, cfg.Enumeration.PageSize)
	assert.True(t, cfg.Migration.RedeliverDuplicates)
	assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)

	// Untouched values come from the base loader.
	assert.Equal(t, config.DefaultOrderBy, cfg.Enumeration.OrderBy)
	assert.Equal(t, config.DefaultStagingDir, cfg.Migration.StagingDir)
}

func TestLoader_PropagatesBaseError(t *testing.T) {
	_, err := New(failingLoader{}).Load(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GRID_SOURCE_API_KEY", EnvName("source.api_key"))
}
