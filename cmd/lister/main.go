// Command lister walks the source media listing by upload time and prints
// every image id once. Progress goes to stderr so stdout can be piped.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahrav/grid-enumerator/internal/app/bootstrap"
	"github.com/ahrav/grid-enumerator/internal/app/handlers/listing"
	"github.com/ahrav/grid-enumerator/internal/config"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
	progressreporter "github.com/ahrav/grid-enumerator/internal/infra/progress_reporter"
)

const serviceType = "lister"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lister: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, serviceType, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())

	enumerator, err := rt.NewEnumerator(
		progressreporter.New(os.Stderr, rt.Tracer),
		config.DefaultListPageSize,
		enumeration.DeliverUnique,
	)
	if err != nil {
		return err
	}

	count, err := enumerator.Enumerate(ctx, listing.NewHandler(os.Stdout))
	if err != nil {
		rt.Log.Error(ctx, "Listing failed", "unique", count, "error", err)
		return err
	}

	rt.Log.Info(ctx, "Listing completed", "unique", count)
	return nil
}
