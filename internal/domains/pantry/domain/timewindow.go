package domain

import (
	"errors"
	"sort"
	"time"
)

// ErrInvertedWindow reports a window whose start lies after its end.
var ErrInvertedWindow = errors.New("time window start must not be after its end")

var (
	// MinInstant stands in for a missing start bound during interval math.
	MinInstant = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	// MaxInstant stands in for a missing end bound during interval math.
	MaxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// TimeWindow is a date range where a nil bound means unbounded in that direction.
// Values are treated as immutable once built.
type TimeWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// NewTimeWindow validates the bounds and returns the window.
func NewTimeWindow(start, end *time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: cloneInstant(start), End: cloneInstant(end)}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Between builds a bounded window and panics on inverted input. Intended for literals and fixtures.
func Between(start, end time.Time) TimeWindow {
	w, err := NewTimeWindow(&start, &end)
	if err != nil {
		panic(err)
	}
	return w
}

// Validate checks the start <= end invariant when both bounds are present.
func (w TimeWindow) Validate() error {
	if w.Start != nil && w.End != nil && w.Start.After(*w.End) {
		return ErrInvertedWindow
	}
	return nil
}

// Bounds returns the window edges with sentinels substituted for missing bounds.
func (w TimeWindow) Bounds() (time.Time, time.Time) {
	start, end := MinInstant, MaxInstant
	if w.Start != nil {
		start = *w.Start
	}
	if w.End != nil {
		end = *w.End
	}
	return start, end
}

// Overlaps reports whether a and b share more than a boundary point.
func Overlaps(a, b TimeWindow) bool {
	aStart, aEnd := a.Bounds()
	bStart, bEnd := b.Bounds()
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Partition splits the timeline covered by windows at every distinct boundary point and
// returns the consecutive segments in ascending order.
func Partition(windows []TimeWindow) []TimeWindow {
	points := make([]time.Time, 0, len(windows)*2)
	for _, w := range windows {
		start, end := w.Bounds()
		points = append(points, start, end)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Before(points[j]) })

	distinct := points[:0]
	for _, p := range points {
		if len(distinct) > 0 && distinct[len(distinct)-1].Equal(p) {
			continue
		}
		distinct = append(distinct, p)
	}
	if len(distinct) < 2 {
		return nil
	}

	segments := make([]TimeWindow, 0, len(distinct)-1)
	for i := 0; i+1 < len(distinct); i++ {
		segments = append(segments, fromBounds(distinct[i], distinct[i+1]))
	}
	return segments
}

// fromBounds converts sentinel edges back to unbounded ones.
func fromBounds(start, end time.Time) TimeWindow {
	var w TimeWindow
	if !start.Equal(MinInstant) {
		s := start
		w.Start = &s
	}
	if !end.Equal(MaxInstant) {
		e := end
		w.End = &e
	}
	return w
}

func cloneInstant(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
