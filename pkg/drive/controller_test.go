package drive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockController() (*Controller, *MockBackend) {
	m := NewMockBackend()
	return NewController(m, KindMock), m
}

func TestController_IgnoresMovesWhileStopped(t *testing.T) {
	c, m := newMockController()

	w, err := c.Move(Command{Linear: 0.5})
	require.NoError(t, err)
	assert.Equal(t, Wheels{}, w)
	assert.Empty(t, m.History())
	assert.False(t, c.IsRunning())
}

func TestController_Move(t *testing.T) {
	c, m := newMockController()
	c.Start()

	w, err := c.Move(Command{Linear: 0.2, Steering: 0.3})
	require.NoError(t, err)
	assert.InDelta(t, -0.1, w.Left, 1e-9)
	assert.InDelta(t, 0.5, w.Right, 1e-9)
	assert.Equal(t, w, m.Current())
	assert.Equal(t, w, c.Wheels())
}

func TestController_ManualMotions(t *testing.T) {
	c, m := newMockController()
	c.Start()

	require.NoError(t, c.Forward(0.3))
	require.NoError(t, c.Backward(0.3))
	require.NoError(t, c.TurnLeft(0.3))
	require.NoError(t, c.TurnRight(0.3))

	assert.Equal(t, []Wheels{
		{0.3, 0.3},
		{-0.3, -0.3},
		{-0.3, 0.3},
		{0.3, -0.3},
	}, m.History())
}

func TestController_SetMotor(t *testing.T) {
	c, m := newMockController()
	c.Start()

	require.NoError(t, c.SetMotor(MotorLeft, 0.4))
	require.NoError(t, c.SetMotor(MotorRight, -0.2))
	assert.Equal(t, Wheels{0.4, -0.2}, m.Current())

	assert.ErrorIs(t, c.SetMotor("middle", 0.1), ErrUnknownMotor)
	assert.ErrorIs(t, c.SetMotor(MotorLeft, 1.5), ErrSpeedRange)
	assert.ErrorIs(t, c.Forward(-1.01), ErrSpeedRange)
	assert.Equal(t, Wheels{0.4, -0.2}, m.Current())
}

func TestController_StopHaltsMotors(t *testing.T) {
	c, m := newMockController()
	c.Start()
	require.NoError(t, c.Forward(0.5))

	require.NoError(t, c.Stop())
	assert.Equal(t, Wheels{}, m.Current())
	assert.False(t, c.IsRunning())

	// Further requests are ignored.
	require.NoError(t, c.Forward(0.5))
	assert.Equal(t, Wheels{}, m.Current())
}

func TestController_BackendError(t *testing.T) {
	c, m := newMockController()
	m.Err = errors.New("i2c nack")
	c.Start()

	_, err := c.Move(Command{Linear: 0.1})
	assert.Error(t, err)
	assert.Equal(t, Wheels{}, c.Wheels())
}

func TestController_Close(t *testing.T) {
	c, m := newMockController()
	c.Start()
	require.NoError(t, c.Close())
	assert.True(t, m.Closed())
	assert.False(t, c.IsRunning())
}

func TestSelfTest(t *testing.T) {
	c, m := newMockController()
	plan := SelfTestPlan(0.3, 0)

	var names []string
	err := SelfTest(context.Background(), c, plan, func(_ int, s SelfTestStep) {
		names = append(names, s.Name)
	})
	require.NoError(t, err)

	require.Len(t, plan, 15)
	assert.Equal(t, []string{"forward", "backward", "turn left", "turn right", "stop"}, names[:5])

	hist := m.History()
	// 15 steps plus the final stop.
	require.Len(t, hist, 16)
	assert.Equal(t, Wheels{0.3, 0.3}, hist[0])
	// First sweep step: linear 0.2, angular -0.5.
	assert.InDelta(t, 0.7, hist[5].Left, 1e-9)
	assert.InDelta(t, -0.3, hist[5].Right, 1e-9)
	assert.Equal(t, Wheels{}, hist[len(hist)-1])
	assert.False(t, c.IsRunning())
}

func TestSelfTest_Cancelled(t *testing.T) {
	c, m := newMockController()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SelfTest(ctx, c, SelfTestPlan(0.3, 0), nil)
	// A zero hold may win the race against the cancelled context, so only
	// check that the motors end stopped.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, Wheels{}, m.Current())
}
