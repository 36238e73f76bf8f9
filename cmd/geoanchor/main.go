package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "geoanchor"
)

const usage = `usage:
  geoanchor run [flags] [configDir]
  geoanchor convert <lat,lon,height> <refLat,refLon,refHeight>
  geoanchor resolutions <sqlite file>
  geoanchor version`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}

	switch strings.ToLower(args[0]) {
	case "run":
		return runCommand(ctx, args[1:], out)
	case "convert":
		return convertCommand(args[1:], out)
	case "resolutions":
		return resolutionsCommand(args[1:], out)
	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
