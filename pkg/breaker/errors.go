package breaker

import (
	"errors"
	"fmt"
	"time"
)

// OpenError is returned when the breaker rejects a call outright. It is a
// control-flow signal, not a fault: callers are expected to branch on it,
// typically by deferring the call for TimeUntilReset.
type OpenError struct {
	// TimeUntilReset is how long until the breaker transitions to half-open
	// and admits a trial call.
	TimeUntilReset time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open, retry in %s", e.TimeUntilReset)
}

// IsOpen reports whether err indicates a call rejected by an open circuit.
func IsOpen(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}
