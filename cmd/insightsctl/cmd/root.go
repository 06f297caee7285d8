// Package cmd implements insightsctl, an operator tool that runs credential
// refreshes, syncs and reports against the same storage as the server.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/pilab-dev/creator-insights/config"
	"github.com/pilab-dev/creator-insights/internal/app"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/tracing"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const appName = "insightsctl"

var (
	appLogger log.Logger
	output    string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "insightsctl operates connected Instagram accounts",
	Long:          `A command-line interface for refreshing credentials, running syncs and printing analytics reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		appLogger = log.NewZerologAdapter(log.ParseLevel(level), true)
		if output != "json" && output != "yaml" {
			return fmt.Errorf("unknown output format %q", output)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	tp, err := tracing.InitTracerProvider(appName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize TracerProvider:", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = tp.Shutdown(context.Background())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format (json or yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// withApp loads configuration, opens the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			appLogger.Warn(ctx, "Failed to close connections", log.Fields{"error": err.Error()})
		}
	}()
	return fn(ctx, a)
}

func printResult(w io.Writer, v interface{}) error {
	if output == "yaml" {
		// Round-trip through JSON so field names follow the API's json tags.
		raw, err := gojson.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := gojson.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	}
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
