package clock

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // the reference zone must resolve on hosts without zoneinfo
)

// Clock supplies the current time in a fixed reference timezone.
type Clock interface {
	Now() time.Time
}

// Zoned reads the system clock and converts every reading into one location.
type Zoned struct {
	loc *time.Location
}

// NewZoned returns a Clock pinned to the named IANA timezone.
func NewZoned(name string) (*Zoned, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Zoned{loc: loc}, nil
}

func (z *Zoned) Now() time.Time {
	return time.Now().In(z.loc)
}

// Location returns the reference timezone.
func (z *Zoned) Location() *time.Location {
	return z.loc
}

// Fixed is a settable clock for tests and tooling.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
