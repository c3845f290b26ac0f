// Package timeline owns the set of placed clips that make up a composition.
// All mutation goes through the Store so positional invariants are checked
// atomically; everything outside this package refers to clips by id only.
package timeline

// MinClipDuration is the shortest clip the store will commit, in seconds.
const MinClipDuration = 0.1

// Side selects which trim boundary of a clip an edit applies to.
type Side int

const (
	SideStart Side = iota
	SideEnd
)

func (s Side) String() string {
	if s == SideStart {
		return "start"
	}
	return "end"
}

// Span is a half-open interval [Start, End) in composition time.
// Touching endpoints do not overlap.
type Span struct {
	Start float64
	End   float64
}

func (s Span) Duration() float64 {
	return s.End - s.Start
}

// Contains reports whether t falls inside the half-open interval.
func (s Span) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// Overlaps reports whether two half-open intervals share any time.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Clip is a source media file positioned on a track with its own trim range.
// StartTime is in composition time; TrimStart/TrimEnd are in source time.
type Clip struct {
	ID        string  `json:"id"`
	SourceID  string  `json:"source_id"`
	Track     int     `json:"track"`
	StartTime float64 `json:"start_time"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

func (c Clip) Duration() float64 {
	return c.TrimEnd - c.TrimStart
}

// Span returns the clip's footprint on its track in composition time.
func (c Clip) Span() Span {
	return Span{Start: c.StartTime, End: c.StartTime + c.Duration()}
}
