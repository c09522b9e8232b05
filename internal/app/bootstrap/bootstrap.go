// Package bootstrap holds the process setup shared by the command line
// entrypoints: configuration loading, logging, telemetry and construction of
// the source listing client and the enumeration engine.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/media"
	"github.com/ahrav/grid-enumerator/internal/app/enumeration/metrics"
	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/config"
	"github.com/ahrav/grid-enumerator/internal/config/envloader"
	"github.com/ahrav/grid-enumerator/internal/config/fileloader"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
	"github.com/ahrav/grid-enumerator/internal/infra/gridapi"
	"github.com/ahrav/grid-enumerator/pkg/common"
	"github.com/ahrav/grid-enumerator/pkg/common/logger"
	"github.com/ahrav/grid-enumerator/pkg/common/otel"
)

// ConfigPathEnv names the environment variable holding the optional config
// file path.
const ConfigPathEnv = "GRID_CONFIG"

// LoadConfig reads the file named by GRID_CONFIG, if any, and overlays the
// GRID_* environment variables.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	var base config.Loader = config.DefaultLoader{}
	if path := os.Getenv(ConfigPathEnv); path != "" {
		base = fileloader.NewFileLoader(path)
	}

	cfg, err := envloader.New(base).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the JSON process logger. Error records are echoed to
// errOut with their attributes and trace id.
func NewLogger(w, errOut io.Writer, serviceType string, level logger.Level) *logger.Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(errOut, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(errOut, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	svcName := fmt.Sprintf("%s-%s", serviceType, hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	return logger.NewWithMetadata(w, level, svcName, otel.TraceIDFn(), logEvents, metadata)
}

// Runtime is the process-wide state a command needs once setup succeeded.
type Runtime struct {
	Config *config.Config
	Log    *logger.Logger
	Tracer trace.Tracer
	Meter  metric.MeterProvider

	teardown func(context.Context)
	debug    *common.DebugServer
}

// Start loads and validates configuration, then initializes logging,
// GOMAXPROCS and telemetry. validate is either (*config.Config).Validate or
// (*config.Config).ValidateMigration.
func Start(ctx context.Context, serviceType string, validate func(*config.Config) error) (*Runtime, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	log := NewLogger(os.Stderr, os.Stderr, serviceType, logger.ParseLevel(cfg.Telemetry.LogLevel))

	stdLog := logger.NewStdLogger(log, logger.LevelDebug)
	if _, err := maxprocs.Set(maxprocs.Logger(stdLog.Printf)); err != nil {
		log.Warn(ctx, "Failed to set GOMAXPROCS", "error", err)
	}

	providers, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      cfg.Telemetry.ServiceName,
		ExporterEndpoint: cfg.Telemetry.ExporterEndpoint,
		Probability:      cfg.Telemetry.SamplingRatio,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"app":              serviceType,
		},
		InsecureExporter: cfg.Telemetry.InsecureExporter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	rt := &Runtime{
		Config:   cfg,
		Log:      log,
		Tracer:   providers.Tracer.Tracer(cfg.Telemetry.ServiceName),
		Meter:    providers.Meter,
		teardown: teardown,
	}

	if addr := cfg.Telemetry.DebugAddr; addr != "" {
		rt.debug, err = common.StartDebugServer(addr)
		if err != nil {
			teardown(ctx)
			return nil, fmt.Errorf("failed to start debug server: %w", err)
		}
		log.Info(ctx, "Debug server listening", "addr", rt.debug.Addr())
	}

	return rt, nil
}

// Shutdown stops the debug server and flushes telemetry.
func (r *Runtime) Shutdown(ctx context.Context) {
	if r.debug != nil {
		if err := r.debug.Shutdown(ctx); err != nil {
			r.Log.Warn(ctx, "Failed to stop debug server", "error", err)
		}
	}
	if r.teardown != nil {
		r.teardown(ctx)
	}
}

// NewEnumerator wires the source listing client, metrics and reporter into an
// Enumerator. pageSize is used when the configuration leaves it unset.
func (r *Runtime) NewEnumerator(
	reporter shared.ProgressReporter,
	pageSize int,
	delivery enumeration.DeliveryPolicy,
) (*media.Enumerator, error) {
	since, err := r.Config.Since()
	if err != nil {
		return nil, err
	}

	m, err := metrics.NewEnumerationMetrics(r.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create enumeration metrics: %w", err)
	}

	src := r.Config.Source
	client := gridapi.NewClient(
		gridapi.NewHTTPClient(src.RequestTimeout),
		src.APIKey,
		common.NewRateLimiter(src.RateLimit, 1),
		r.Log,
		r.Tracer,
	)

	opts := media.Options{
		PageSize:     r.Config.Enumeration.PageSizeOr(pageSize),
		InitialSince: since,
		OrderBy:      r.Config.Enumeration.OrderBy,
		Delivery:     delivery,
	}

	return media.NewEnumerator(
		gridapi.NewImageLister(client, src.ImagesEndpoint),
		opts,
		reporter,
		m,
		r.Log,
		r.Tracer,
	), nil
}

// NewDestinationClient builds the client used for every destination call. It
// shares the source request timeout.
func (r *Runtime) NewDestinationClient() *gridapi.Client {
	dst := r.Config.Destination
	return gridapi.NewClient(
		gridapi.NewHTTPClient(r.Config.Source.RequestTimeout),
		dst.APIKey,
		common.NewRateLimiter(dst.RateLimit, 1),
		r.Log,
		r.Tracer,
	)
}
