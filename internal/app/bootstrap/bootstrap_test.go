package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/config"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
	"github.com/ahrav/grid-enumerator/internal/infra/gridapi"
	progressreporter "github.com/ahrav/grid-enumerator/internal/infra/progress_reporter"
	"github.com/ahrav/grid-enumerator/pkg/common/logger"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  images_endpoint: https://source.example.com/media-api/images
  api_key: from-file
enumeration:
  page_size: 25
`), 0o600))

	tests := []struct {
		name       string
		env        map[string]string
		wantKey    string
		wantPage   int
		wantSource string
	}{
		{
			name:     "defaults only",
			env:      map[string]string{ConfigPathEnv: ""},
			wantPage: 0,
		},
		{
			name:       "file",
			env:        map[string]string{ConfigPathEnv: path},
			wantKey:    "from-file",
			wantPage:   25,
			wantSource: "https://source.example.com/media-api/images",
		},
		{
			name: "environment overrides file",
			env: map[string]string{
				ConfigPathEnv:                path,
				"GRID_SOURCE_API_KEY":        "from-env",
				"GRID_ENUMERATION_PAGE_SIZE": "7",
			},
			wantKey:    "from-env",
			wantPage:   7,
			wantSource: "https://source.example.com/media-api/images",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.Source.APIKey)
			assert.Equal(t, tt.wantPage, cfg.Enumeration.PageSize)
			assert.Equal(t, tt.wantSource, cfg.Source.ImagesEndpoint)
			assert.Equal(t, config.DefaultOrderBy, cfg.Enumeration.OrderBy)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig(context.Background())

	assert.ErrorContains(t, err, "failed to load config")
}

func TestNewLogger_EchoesErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewLogger(&out, &errOut, "lister", logger.LevelInfo)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "visible")
	log.Error(context.Background(), "fetch failed", "page", 2)

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"msg":"visible"`)
	assert.Contains(t, out.String(), `"app":"lister"`)
	assert.Contains(t, errOut.String(), "Error event: fetch failed")
	assert.Contains(t, errOut.String(), `"page":2`)
}

func TestRuntime_NewEnumerator(t *testing.T) {
	var gotKey, gotLength string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(gridapi.MediaKeyHeader)
		gotLength = r.URL.Query().Get("length")
		fmt.Fprint(w, `{"data":[{"data":{"id":"a","uploadTime":"2021-03-04T10:00:01.000Z"}}],"total":0}`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Source.ImagesEndpoint = srv.URL
	cfg.Source.APIKey = "k"
	rt := &Runtime{
		Config: cfg,
		Log:    logger.Noop(),
		Tracer: noop.NewTracerProvider().Tracer("test"),
		Meter:  metricnoop.NewMeterProvider(),
	}

	var progress bytes.Buffer
	e, err := rt.NewEnumerator(progressreporter.New(&progress, rt.Tracer), config.DefaultMigratePageSize, enumeration.DeliverUnique)
	require.NoError(t, err)

	var ids []string
	count, err := e.Enumerate(context.Background(), shared.RecordHandlerFunc(func(_ context.Context, r enumeration.Record) error {
		ids = append(ids, r.ID)
		return nil
	}))

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"a"}, ids)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "10", gotLength)
	assert.Equal(t, "-1 remaining\nFound: 1 unique records\n", progress.String())
	rt.Shutdown(context.Background())
}

func TestRuntime_NewEnumeratorRejectsBadSince(t *testing.T) {
	cfg := config.Default()
	cfg.Enumeration.InitialSince = "not a time"
	rt := &Runtime{Config: cfg, Log: logger.Noop(), Meter: metricnoop.NewMeterProvider()}

	_, err := rt.NewEnumerator(nil, 1, enumeration.DeliverUnique)

	assert.Error(t, err)
}
