package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/pkg/telemetry"
)

var plotDir string

var plotCmd = &cobra.Command{
	Use:   "plot <id>",
	Short: "Chart a run's lane error and wheel commands",
	Long: `Write two PNG charts for a recorded run: the pixel error and steering
output per frame, and the linear, steering and wheel commands. The run
may be given by a unique id prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Telemetry.PlotDir
		if plotDir != "" {
			dir = plotDir
		}
		return withStore(func(ctx context.Context, s *telemetry.Store) error {
			run, err := findRun(ctx, s, args[0])
			if err != nil {
				return err
			}
			frames, err := s.Frames(ctx, run.ID)
			if err != nil {
				return err
			}
			paths, err := telemetry.PlotRun(run, frames, dir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotDir, "out", "o", "", "Output directory (default from config)")
}
