package drive

import (
	"context"
	"time"
)

// SelfTestStep is one timed motion of the hardware self test.
type SelfTestStep struct {
	Name   string
	Wheels Wheels
	Hold   time.Duration
}

// SelfTestPlan builds the standard sequence: forward, backward, left, right,
// a stop, then a ten step differential sweep at linear 0.2 with angular
// 0.1*(i-5).
func SelfTestPlan(speed float64, hold time.Duration) []SelfTestStep {
	plan := []SelfTestStep{
		{"forward", Wheels{speed, speed}, hold},
		{"backward", Wheels{-speed, -speed}, hold},
		{"turn left", Wheels{-speed, speed}, hold},
		{"turn right", Wheels{speed, -speed}, hold},
		{"stop", Wheels{}, hold / 2},
	}
	for i := 0; i < 10; i++ {
		angular := 0.1 * float64(i-5)
		plan = append(plan, SelfTestStep{
			Name:   "sweep",
			Wheels: Mix(Command{Linear: 0.2, Steering: angular}),
			Hold:   hold / 2,
		})
	}
	return plan
}

// SelfTest runs plan on c. The controller is started for the duration of
// the test and always stopped afterwards. onStep, if non-nil, is called
// before each step.
func SelfTest(ctx context.Context, c *Controller, plan []SelfTestStep, onStep func(int, SelfTestStep)) error {
	c.Start()
	defer c.Stop()

	for i, step := range plan {
		if onStep != nil {
			onStep(i, step)
		}
		if _, err := c.applyChecked(step.Wheels.Left, step.Wheels.Right); err != nil {
			return err
		}

		timer := time.NewTimer(step.Hold)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
