package rate

import "errors"

// ErrRateLimited is returned when an identifier or IP exceeds its login
// attempt budget for the current window.
var ErrRateLimited = errors.New("rate limited")
