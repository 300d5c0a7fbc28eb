// =============================================================================
// X-Plane Airway Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   airway convert   - Convert one route-segment file
//   airway process   - Run every job in config.yaml
//   airway validate  - Validate configuration and job inputs
//   airway version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Conversion engine (reference tables, resolver,
//                      record formatting, sorting, orchestration)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/xplane-airway-converter/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
