package epoch

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dukerupert/castle/internal/model"
)

// Tuesday 3 March 2026.
func tue(h, m, s int) time.Time {
	return time.Date(2026, 3, 3, h, m, s, 0, time.UTC)
}

func TestDailyBeforeBlackout(t *testing.T) {
	w, err := Resolve(model.CadenceDaily, tue(5, 59, 59))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.InBlackout {
		t.Error("05:59:59 should be outside the blackout window")
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}
}

func TestDailyBlackoutStartInclusive(t *testing.T) {
	w, err := Resolve(model.CadenceDaily, tue(6, 0, 0))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.InBlackout {
		t.Error("06:00:00 should be inside the blackout window")
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}
}

func TestDailyBlackoutEndInclusive(t *testing.T) {
	w, err := Resolve(model.CadenceDaily, tue(8, 0, 0))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.InBlackout {
		t.Error("08:00:00 should be inside the blackout window")
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want yesterday 06:00 %v", w.Start, want)
	}
}

func TestDailyAfterBlackout(t *testing.T) {
	w, err := Resolve(model.CadenceDaily, tue(8, 0, 1))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.InBlackout {
		t.Error("08:00:01 should be outside the blackout window")
	}
	want := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want today 06:00 %v", w.Start, want)
	}
}

func TestDailyLateEvening(t *testing.T) {
	w, err := Resolve(model.CadenceDaily, tue(23, 30, 0))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}
}

func TestWeeklyMondayInsideBlackout(t *testing.T) {
	monday := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	w, err := Resolve(model.CadenceWeekly, monday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.InBlackout {
		t.Error("Monday 07:00 should be inside the blackout window")
	}
	want := time.Date(2026, 2, 23, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want previous Monday %v", w.Start, want)
	}
}

func TestWeeklyMondayAfterBlackout(t *testing.T) {
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w, err := Resolve(model.CadenceWeekly, monday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.InBlackout {
		t.Error("Monday 09:00 should be outside the blackout window")
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want this Monday %v", w.Start, want)
	}
}

func TestWeeklyMidWeek(t *testing.T) {
	// Thursday inside the blackout: time-of-day check still applies but the
	// weekly boundary stays on Monday.
	thursday := time.Date(2026, 3, 5, 7, 30, 0, 0, time.UTC)
	w, err := Resolve(model.CadenceWeekly, thursday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.InBlackout {
		t.Error("Thursday 07:30 should be inside the blackout window")
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}
}

func TestWeeklySunday(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 22, 0, 0, 0, time.UTC)
	w, err := Resolve(model.CadenceWeekly, sunday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}
}

func TestResolveDeterministic(t *testing.T) {
	now := tue(14, 12, 3)
	first, err := Resolve(model.CadenceWeekly, now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, _ := Resolve(model.CadenceWeekly, now)
		if got != first {
			t.Fatalf("resolve #%d = %+v, want %+v", i, got, first)
		}
	}
}

func TestResolveKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 29 March 2026 is the UK spring-forward day.
	now := time.Date(2026, 3, 29, 9, 0, 0, 0, loc)
	w, err := Resolve(model.CadenceDaily, now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.Start.Hour() != 6 || w.Start.Location() != loc {
		t.Errorf("start = %v, want 06:00 Europe/London", w.Start)
	}
}

func TestResolveUnknownCadence(t *testing.T) {
	if _, err := Resolve(model.Cadence("monthly"), tue(12, 0, 0)); err == nil {
		t.Fatal("expected error for unknown cadence")
	}
}

func TestBlackoutBounds(t *testing.T) {
	start, end := BlackoutBounds(tue(15, 0, 0))
	if !start.Equal(tue(6, 0, 0)) {
		t.Errorf("start = %v, want %v", start, tue(6, 0, 0))
	}
	if !end.Equal(tue(8, 0, 0)) {
		t.Errorf("end = %v, want %v", end, tue(8, 0, 0))
	}
}
