// Command migrator copies every image of the source media system, with its
// user metadata, into the destination system.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahrav/grid-enumerator/internal/app/bootstrap"
	"github.com/ahrav/grid-enumerator/internal/app/handlers/migration"
	"github.com/ahrav/grid-enumerator/internal/config"
	"github.com/ahrav/grid-enumerator/internal/infra/gridapi"
	progressreporter "github.com/ahrav/grid-enumerator/internal/infra/progress_reporter"
)

const serviceType = "migrator"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrator: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, serviceType, (*config.Config).ValidateMigration)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())

	cfg := rt.Config
	dst := rt.NewDestinationClient()
	handler, err := migration.NewHandler(
		gridapi.NewImageLoader(dst, cfg.Destination.LoaderEndpoint),
		gridapi.NewMetadataEditor(dst, cfg.Destination.MetadataEndpoint),
		migration.Options{
			StagingDir:    cfg.Migration.StagingDir,
			KeepOriginals: cfg.Migration.KeepOriginals,
		},
		os.Stdout,
		rt.Log,
		rt.Tracer,
	)
	if err != nil {
		return err
	}

	enumerator, err := rt.NewEnumerator(
		progressreporter.New(os.Stdout, rt.Tracer),
		config.DefaultMigratePageSize,
		cfg.DeliveryPolicy(),
	)
	if err != nil {
		return err
	}

	rt.Log.Info(ctx, "Starting migration",
		"delivery", cfg.DeliveryPolicy().String(),
		"staging_dir", cfg.Migration.StagingDir,
	)

	count, err := enumerator.Enumerate(ctx, handler)
	if err != nil {
		rt.Log.Error(ctx, "Migration failed", "unique", count, "error", err)
		return err
	}

	rt.Log.Info(ctx, "Migration completed", "unique", count)
	return nil
}
