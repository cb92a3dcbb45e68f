package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/ptz"
	"github.com/teslashibe/go-jetbot/pkg/teleop"
)

var manualSpeed float64

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Drive with the keyboard",
	Long: `Open a terminal UI for driving by hand.

  w / s      forward / backward
  a / d      turn left / right
  space      stop
  + / -      change speed
  arrows     pan and tilt the camera
  c          centre the camera
  q          quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := drive.Open(cfg.Drive)
		if err != nil {
			return err
		}
		defer ctrl.Close()
		ctrl.Start()

		var mount teleop.Mount
		if m, err := ptz.Open(cfg.PTZ); err != nil {
			log.Warn("camera mount unavailable", "error", err)
		} else {
			defer m.Close()
			if err := m.Center(context.Background()); err != nil {
				log.Warn("centre camera", "error", err)
			}
			mount = m
		}

		tcfg := teleop.DefaultConfig()
		tcfg.Speed = manualSpeed

		ctx, cancel := signalContext()
		defer cancel()
		return teleop.Run(ctx, ctrl, mount, tcfg)
	},
}

func init() {
	manualCmd.Flags().Float64Var(&manualSpeed, "speed", 0.3, "Initial speed, 0 to 1")
}
