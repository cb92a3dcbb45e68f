package drive

// Backend drives the two wheel motors.
// Speeds are in [-1, 1]; callers validate before calling SetSpeeds.
type Backend interface {
	SetSpeeds(left, right float64) error
	Stop() error
	Close() error
}

// Kind identifies which backend was resolved.
type Kind int

const (
	KindMock Kind = iota
	KindGPIO
	KindPCA9685
)

func (k Kind) String() string {
	switch k {
	case KindPCA9685:
		return BackendPCA9685
	case KindGPIO:
		return BackendGPIO
	default:
		return BackendMock
	}
}

// IsHardware reports whether the backend moves real motors.
func (k Kind) IsHardware() bool {
	return k != KindMock
}
