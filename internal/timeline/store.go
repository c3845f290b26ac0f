package timeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// SourceLibrary is the read-only view of the media registry the store needs.
// The store never mutates media; it only looks up durations to bound trims.
type SourceLibrary interface {
	SourceDuration(sourceID string) (float64, bool)
}

// Store owns every placed clip. It is the single writer for clip state:
// each operation re-checks the invariants before committing and leaves the
// store untouched when it fails.
//
// Invariants held after every committed operation:
//   - 0 <= TrimStart < TrimEnd <= source duration
//   - TrimEnd - TrimStart >= MinClipDuration
//   - StartTime >= 0
//   - no two clips on the same track have overlapping half-open spans
//
// Only track 0 participates in playback and export ordering; other tracks
// hold clips but are not composited.
type Store struct {
	mu            sync.Mutex
	library       SourceLibrary
	clips         map[string]*Clip
	snapTolerance float64
}

func NewStore(library SourceLibrary) *Store {
	return &Store{
		library:       library,
		clips:         make(map[string]*Clip),
		snapTolerance: DefaultSnapTolerance,
	}
}

// Place adds a clip for the full source duration at desiredStart. When the
// desired position collides with an existing clip the new clip is appended
// flush after the last clip on the track instead; the expected interaction
// is "append to track", so collision is not an error here.
func (s *Store) Place(sourceID string, track int, desiredStart float64) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcDur, ok := s.library.SourceDuration(sourceID)
	if !ok {
		return Clip{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	if srcDur < MinClipDuration {
		return Clip{}, fmt.Errorf("%w: source shorter than %.2fs", ErrInvalidTrim, MinClipDuration)
	}

	start := desiredStart
	if start < 0 {
		start = 0
	}

	placed := Span{Start: start, End: start + srcDur}
	for _, other := range s.trackClipsLocked(track, "") {
		if placed.Overlaps(other.Span()) {
			start = s.trackEndLocked(track)
			break
		}
	}

	clip := Clip{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Track:     track,
		StartTime: start,
		TrimStart: 0,
		TrimEnd:   srcDur,
	}
	if err := s.checkLocked(clip); err != nil {
		return Clip{}, err
	}

	s.clips[clip.ID] = &clip
	return clip, nil
}

// Move resolves proposedStart against the snap points on the clip's own track
// and commits the result. When no legal snap point is within tolerance the
// clip stays where it was; the returned start is then the pre-drag position.
func (s *Store) Move(id string, proposedStart float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clips[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}

	others := make([]Span, 0)
	for _, other := range s.trackClipsLocked(c.Track, c.ID) {
		others = append(others, other.Span())
	}

	newStart, moved := ResolveSnap(c.Duration(), proposedStart, s.snapTolerance, others)
	if !moved {
		return c.StartTime, nil
	}

	c.StartTime = newStart
	return newStart, nil
}

// Trim moves one trim boundary of the clip, clamping proposedBoundary into
// [0, source duration]. The boundary is in source time. The clip's start
// shifts in lockstep with a start-side trim so the opposite edge stays fixed
// in composition time.
func (s *Store) Trim(id string, side Side, proposedBoundary float64) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clips[id]
	if !ok {
		return Clip{}, fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}

	srcDur, ok := s.library.SourceDuration(c.SourceID)
	if !ok {
		return Clip{}, fmt.Errorf("%w: %s", ErrUnknownSource, c.SourceID)
	}

	boundary := clamp(proposedBoundary, 0, srcDur)

	next := *c
	switch side {
	case SideStart:
		if c.TrimEnd-boundary < MinClipDuration {
			return Clip{}, fmt.Errorf("%w: start %.3f leaves clip shorter than %.2fs", ErrInvalidTrim, boundary, MinClipDuration)
		}
		next.TrimStart = boundary
		next.StartTime = c.StartTime + (boundary - c.TrimStart)
		if next.StartTime < 0 {
			return Clip{}, fmt.Errorf("%w: trim would push clip before composition origin", ErrInvalidTrim)
		}
	case SideEnd:
		if boundary-c.TrimStart < MinClipDuration {
			return Clip{}, fmt.Errorf("%w: end %.3f leaves clip shorter than %.2fs", ErrInvalidTrim, boundary, MinClipDuration)
		}
		next.TrimEnd = boundary
	default:
		return Clip{}, fmt.Errorf("%w: unknown side %d", ErrInvalidTrim, side)
	}

	if err := s.checkLocked(next); err != nil {
		return Clip{}, err
	}

	*c = next
	return next, nil
}

// Split replaces one clip with two contiguous clips at atCompositionTime.
// The split point must be strictly inside the clip span. The first half keeps
// the original id so existing references stay valid; the second half gets a
// fresh id. Their source trim ranges stay contiguous so no frame is lost or
// duplicated.
func (s *Store) Split(id string, atCompositionTime float64) (Clip, Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clips[id]
	if !ok {
		return Clip{}, Clip{}, fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}

	span := c.Span()
	if atCompositionTime <= span.Start || atCompositionTime >= span.End {
		return Clip{}, Clip{}, fmt.Errorf("%w: %.3f outside (%.3f, %.3f)", ErrNotWithinClip, atCompositionTime, span.Start, span.End)
	}

	offset := atCompositionTime - c.StartTime
	if offset < MinClipDuration || c.Duration()-offset < MinClipDuration {
		return Clip{}, Clip{}, fmt.Errorf("%w: split at %.3f would create clip shorter than %.2fs", ErrInvalidTrim, atCompositionTime, MinClipDuration)
	}

	first := *c
	first.TrimEnd = c.TrimStart + offset

	second := Clip{
		ID:        uuid.NewString(),
		SourceID:  c.SourceID,
		Track:     c.Track,
		StartTime: atCompositionTime,
		TrimStart: first.TrimEnd,
		TrimEnd:   c.TrimEnd,
	}

	*c = first
	s.clips[second.ID] = &second
	return first, second, nil
}

// Delete removes the clip. The resulting gap is left open; ripple delete is
// deliberately not offered.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clips[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}
	delete(s.clips, id)
	return nil
}

// Get returns a copy of the clip.
func (s *Store) Get(id string) (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clips[id]
	if !ok {
		return Clip{}, false
	}
	return *c, true
}

// Clips returns copies of every clip ordered by track, then start time.
func (s *Store) Clips() []Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Clip, 0, len(s.clips))
	for _, c := range s.clips {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Track != out[j].Track {
			return out[i].Track < out[j].Track
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// ClipAt returns the track-0 clip whose half-open span contains t. A time
// exactly at one clip's end belongs to the next clip, not the one ending
// there.
func (s *Store) ClipAt(t float64) (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.trackClipsLocked(0, "") {
		if c.Span().Contains(t) {
			return c, true
		}
	}
	return Clip{}, false
}

// TotalDuration is the end of the last track-0 clip, or 0 with no clips.
func (s *Store) TotalDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackEndLocked(0)
}

// Snapshot copies the track-0 clips in start order. Exports consume the copy,
// so edits made during a long render cannot corrupt an in-flight run.
func (s *Store) Snapshot() []Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackClipsLocked(0, "")
}

// trackClipsLocked returns copies of the clips on a track sorted by start
// time, excluding the clip with the given id when one is supplied.
func (s *Store) trackClipsLocked(track int, excludeID string) []Clip {
	var out []Clip
	for _, c := range s.clips {
		if c.Track == track && c.ID != excludeID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

func (s *Store) trackEndLocked(track int) float64 {
	end := 0.0
	for _, c := range s.clips {
		if c.Track != track {
			continue
		}
		if e := c.Span().End; e > end {
			end = e
		}
	}
	return end
}

// checkLocked verifies every invariant for a candidate clip state against the
// rest of the store. The candidate may or may not already be present; when it
// is, the stored version is excluded from the overlap check.
func (s *Store) checkLocked(c Clip) error {
	srcDur, ok := s.library.SourceDuration(c.SourceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, c.SourceID)
	}
	if c.TrimStart < 0 || c.TrimEnd > srcDur || c.TrimStart >= c.TrimEnd {
		return fmt.Errorf("%w: trim [%.3f, %.3f] outside [0, %.3f]", ErrInvalidTrim, c.TrimStart, c.TrimEnd, srcDur)
	}
	if c.Duration() < MinClipDuration {
		return fmt.Errorf("%w: duration %.3f below minimum %.2f", ErrInvalidTrim, c.Duration(), MinClipDuration)
	}
	if c.StartTime < 0 {
		return fmt.Errorf("%w: negative start time", ErrInvalidTrim)
	}
	for _, other := range s.trackClipsLocked(c.Track, c.ID) {
		if c.Span().Overlaps(other.Span()) {
			return fmt.Errorf("%w: [%.3f, %.3f) collides with clip %s", ErrOverlap, c.Span().Start, c.Span().End, other.ID)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
