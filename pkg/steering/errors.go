package steering

import "errors"

// ErrInvalidGain is returned by Config.Validate for unusable gains.
var ErrInvalidGain = errors.New("steering: invalid gain")
