// Package epoch computes which reset cycle of a checklist is active at a
// given instant. All functions are pure; the caller supplies now in the
// reference timezone.
package epoch

import (
	"fmt"
	"time"

	"github.com/dukerupert/castle/internal/model"
)

// Blackout window bounds as time-of-day offsets from midnight. Both ends
// are inclusive.
const (
	BlackoutStart = 6 * time.Hour
	BlackoutEnd   = 8 * time.Hour
)

// Window is the resolution of an instant against a cadence.
type Window struct {
	Start      time.Time
	InBlackout bool
}

// Resolve returns the start of the epoch active at now and whether now
// falls inside the blackout window.
//
// The epoch rolls over only once the blackout window has fully elapsed, so
// at or before 08:00 the previous boundary is still current.
func Resolve(c model.Cadence, now time.Time) (Window, error) {
	blackoutStart, blackoutEnd := BlackoutBounds(now)

	w := Window{
		InBlackout: !now.Before(blackoutStart) && !now.After(blackoutEnd),
	}
	rolled := now.After(blackoutEnd)

	var back int
	switch c {
	case model.CadenceDaily:
		if !rolled {
			back = 1
		}
	case model.CadenceWeekly:
		back = daysSinceMonday(now.Weekday())
		if back == 0 && !rolled {
			back = 7
		}
	default:
		return Window{}, fmt.Errorf("resolve epoch: unknown cadence %q", c)
	}

	w.Start = atOffset(startOfDay(now).AddDate(0, 0, -back), BlackoutStart)
	return w, nil
}

// BlackoutBounds returns the blackout window on the calendar day of now.
func BlackoutBounds(now time.Time) (start, end time.Time) {
	day := startOfDay(now)
	return atOffset(day, BlackoutStart), atOffset(day, BlackoutEnd)
}

// daysSinceMonday maps Monday to 0 through Sunday to 6.
func daysSinceMonday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// atOffset places a wall-clock offset on day, so DST transitions do not
// shift the boundary.
func atOffset(day time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
