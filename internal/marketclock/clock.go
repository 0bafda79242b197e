// Package marketclock decides whether the exchange is open for trading.
//
// The clock is a pure predicate over wall-clock time: closed on
// Saturday and Sunday, open during one contiguous time-of-day window in
// the exchange timezone, closed otherwise. The same predicate gates
// both buy and sell orders.
package marketclock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock maps wall-clock time to the exchange's OPEN/CLOSED state.
type Clock struct {
	loc       *time.Location
	openMins  int // Minutes since midnight, inclusive bound
	closeMins int // Minutes since midnight, exclusive bound
}

// New builds a Clock for the given timezone and "HH:MM" open/close times.
// The window must be internally consistent: open strictly before close.
func New(timezone, open, close string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	openMins, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	closeMins, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}
	if openMins >= closeMins {
		return nil, fmt.Errorf("open %q must be strictly before close %q", open, close)
	}

	return &Clock{
		loc:       loc,
		openMins:  openMins,
		closeMins: closeMins,
	}, nil
}

// IsOpen reports whether the market is open at the given instant.
func (c *Clock) IsOpen(now time.Time) bool {
	local := now.In(c.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	mins := local.Hour()*60 + local.Minute()
	return mins >= c.openMins && mins < c.closeMins
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%q has invalid hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%q has invalid minute", s)
	}
	return h*60 + m, nil
}
