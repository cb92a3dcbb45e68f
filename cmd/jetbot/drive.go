package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/pkg/jetbot"
)

var (
	driveLabel   string
	driveWatch   bool
	driveNoWeb   bool
	driveNoMount bool
	driveSpeed   float64
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Follow the lane until interrupted",
	Long: `Start lane following. The dashboard is served on the configured port
unless --no-web is given, and every frame is recorded to the telemetry
database when telemetry is enabled.

With --watch, edits to the steering gains, base speed or max steering in
the configuration file are applied while driving. A --speed given on the
command line keeps overriding the file's base speed across reloads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if driveNoWeb {
			cfg.Web.Enabled = false
		}

		opts := jetbot.Options{
			ConfigPath: configPath,
			Watch:      driveWatch,
			Label:      driveLabel,
			NoMount:    driveNoMount,
		}
		if cmd.Flags().Changed("speed") {
			opts.BaseSpeed = driveSpeed
		}

		app, err := jetbot.New(cfg, opts)
		if err != nil {
			return err
		}
		if err := app.Init(); err != nil {
			return err
		}
		defer app.Shutdown()

		ctx, cancel := signalContext()
		defer cancel()
		return app.Run(ctx)
	},
}

func init() {
	driveCmd.Flags().StringVar(&driveLabel, "label", "", "Label stored with the telemetry run")
	driveCmd.Flags().BoolVar(&driveWatch, "watch", false, "Reload tuning when the config file changes")
	driveCmd.Flags().BoolVar(&driveNoWeb, "no-web", false, "Do not serve the dashboard")
	driveCmd.Flags().BoolVar(&driveNoMount, "no-mount", false, "Skip the camera pan/tilt mount")
	driveCmd.Flags().Float64Var(&driveSpeed, "speed", 0.2, "Base forward speed, 0 to 1 (overrides the file)")
}
