package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/pkg/drive"
)

var hwtestCmd = &cobra.Command{
	Use:   "hwtest",
	Short: "Exercise the motors",
	Long: `Run each motion for the configured test duration: forward, backward,
both turns, then a sweep of steering values at low speed. Lift the robot
off the ground first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := drive.Open(cfg.Drive)
		if err != nil {
			return err
		}
		defer ctrl.Close()
		fmt.Printf("Motor backend: %s\n", ctrl.Kind())

		ctx, cancel := signalContext()
		defer cancel()

		plan := drive.SelfTestPlan(cfg.Drive.TestSpeed, cfg.Drive.TestDuration)
		err = drive.SelfTest(ctx, ctrl, plan, func(i int, step drive.SelfTestStep) {
			fmt.Printf("[%2d/%d] %-14s left %+.2f  right %+.2f\n",
				i+1, len(plan), step.Name, step.Wheels.Left, step.Wheels.Right)
		})
		if err != nil {
			return err
		}
		fmt.Println("Hardware test complete")
		return nil
	},
}
