// jetbot drives a JetBot around a taped lane using its camera.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/internal/config"
	"github.com/teslashibe/go-jetbot/internal/log"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded before every subcommand runs.
	cfg *config.File
)

var rootCmd = &cobra.Command{
	Use:   "jetbot",
	Short: "Camera lane following for the NVIDIA JetBot",
	Long: `jetbot follows a lane marked with yellow or white tape.

Each camera frame is cropped to the road, segmented by colour and edges,
reduced to line segments and fitted to a lane centre. A PID controller
turns the offset from the image centre into a steering command for the
two wheel motors.

Settings come from a YAML file (see "jetbot config init"); JETBOT_*
environment variables override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		format := cfg.Logging.Format
		if logFormat != "" {
			format = logFormat
		}
		log.Setup(log.Options{Level: level, Format: format})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(driveCmd)
	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(hwtestCmd)
	rootCmd.AddCommand(camtestCmd)
	rootCmd.AddCommand(ptzCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(configCmd)
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
