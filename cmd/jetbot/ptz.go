package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/pkg/ptz"
)

var ptzCmd = &cobra.Command{
	Use:   "ptz",
	Short: "Point the camera pan/tilt mount",
}

func withMount(fn func(ctx context.Context, m *ptz.Mount) error) error {
	m, err := ptz.Open(cfg.PTZ)
	if err != nil {
		return err
	}
	defer m.Close()
	ctx, cancel := signalContext()
	defer cancel()
	if err := fn(ctx, m); err != nil {
		return err
	}
	pos := m.Position()
	fmt.Printf("%s mount at pan %.0f, tilt %.0f\n", m.Backend(), pos.Pan, pos.Tilt)
	return nil
}

var ptzCenterCmd = &cobra.Command{
	Use:   "center",
	Short: "Centre both servos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMount(func(ctx context.Context, m *ptz.Mount) error {
			return m.Center(ctx)
		})
	},
}

var ptzDriveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Move to the lane following pose",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMount(func(ctx context.Context, m *ptz.Mount) error {
			return m.DrivePose(ctx)
		})
	},
}

func angleCmd(servo string) *cobra.Command {
	return &cobra.Command{
		Use:   servo + " <degrees>",
		Short: "Set the " + servo + " angle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deg, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("angle %q: %w", args[0], err)
			}
			return withMount(func(ctx context.Context, m *ptz.Mount) error {
				_, err := m.SetAngle(ctx, servo, deg)
				return err
			})
		},
	}
}

var ptzSweepStep float64

var ptzSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep pan across its range and come back to centre",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lim := cfg.PTZ.PanLimits
		return withMount(func(ctx context.Context, m *ptz.Mount) error {
			for deg := lim.Min; deg <= lim.Max; deg += ptzSweepStep {
				if _, err := m.Pan(ctx, deg); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return m.Center(context.Background())
				case <-time.After(100 * time.Millisecond):
				}
			}
			return m.Center(ctx)
		})
	},
}

func init() {
	ptzSweepCmd.Flags().Float64Var(&ptzSweepStep, "step", 10, "Degrees per step")
	ptzCmd.AddCommand(ptzCenterCmd, ptzDriveCmd, angleCmd(ptz.Pan), angleCmd(ptz.Tilt), ptzSweepCmd)
}
