package timeline

import (
	"errors"
	"math"
	"testing"
)

type fakeLibrary map[string]float64

func (f fakeLibrary) SourceDuration(id string) (float64, bool) {
	d, ok := f[id]
	return d, ok
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPlace_EmptyTrack(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5})

	clip, err := s.Place("a", 0, 2)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if clip.StartTime != 2 || clip.TrimStart != 0 || clip.TrimEnd != 5 {
		t.Fatalf("Place() = %+v, want start 2, trim [0, 5]", clip)
	}
}

func TestPlace_AppendsOnOverlap(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 3})

	if _, err := s.Place("a", 0, 0); err != nil {
		t.Fatalf("Place(a) error = %v", err)
	}

	clip, err := s.Place("b", 0, 2)
	if err != nil {
		t.Fatalf("Place(b) error = %v", err)
	}
	if clip.StartTime != 5 {
		t.Fatalf("overlapping place landed at %v, want appended at 5", clip.StartTime)
	}
}

func TestPlace_NegativeStartClamped(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5})

	clip, err := s.Place("a", 0, -3)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if clip.StartTime != 0 {
		t.Fatalf("StartTime = %v, want 0", clip.StartTime)
	}
}

func TestPlace_UnknownSource(t *testing.T) {
	s := NewStore(fakeLibrary{})

	if _, err := s.Place("missing", 0, 0); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("Place() error = %v, want ErrUnknownSource", err)
	}
}

func TestMove_SnapsToNearestLegalSlot(t *testing.T) {
	// Track 0: [0,5) and [8,12). A clip of duration 3 dragged toward 6 must
	// land at 5, flush after the first clip.
	s := NewStore(fakeLibrary{"a": 5, "b": 4, "c": 3})
	mustPlace(t, s, "a", 0, 0)
	mustPlace(t, s, "b", 0, 8)
	mover := mustPlace(t, s, "c", 0, 20)

	got, err := s.Move(mover.ID, 6)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got != 5 {
		t.Fatalf("Move() = %v, want 5", got)
	}

	moved, _ := s.Get(mover.ID)
	if moved.StartTime != 5 {
		t.Fatalf("committed start = %v, want 5", moved.StartTime)
	}
	assertNoOverlaps(t, s)
}

func TestMove_RevertsWhenNoSlotNearby(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 3, "c": 10})
	mustPlace(t, s, "a", 0, 0)  // [0,5)
	mustPlace(t, s, "b", 0, 5)  // [5,8)
	mover := mustPlace(t, s, "c", 0, 30)

	got, err := s.Move(mover.ID, 3)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got != 30 {
		t.Fatalf("Move() = %v, want pre-drag position 30", got)
	}
	assertNoOverlaps(t, s)
}

func TestMove_UnknownClip(t *testing.T) {
	s := NewStore(fakeLibrary{})
	if _, err := s.Move("nope", 1); !errors.Is(err, ErrUnknownClip) {
		t.Fatalf("Move() error = %v, want ErrUnknownClip", err)
	}
}

func TestTrim_EndClampsToSourceDuration(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 10})
	clip := mustPlace(t, s, "a", 0, 0)

	got, err := s.Trim(clip.ID, SideEnd, 110)
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	if got.TrimEnd != 10 {
		t.Fatalf("TrimEnd = %v, want clamped to 10", got.TrimEnd)
	}
}

func TestTrim_EndShortensFootprint(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 10})
	clip := mustPlace(t, s, "a", 0, 2)

	got, err := s.Trim(clip.ID, SideEnd, 4)
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	if got.StartTime != 2 || got.TrimEnd != 4 {
		t.Fatalf("Trim() = %+v, want start fixed at 2 and TrimEnd 4", got)
	}
	if !almostEqual(got.Span().End, 6) {
		t.Fatalf("footprint end = %v, want 6", got.Span().End)
	}
}

func TestTrim_StartKeepsOppositeEdgeFixed(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 10})
	clip := mustPlace(t, s, "a", 0, 0) // [0,10)

	got, err := s.Trim(clip.ID, SideStart, 3)
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	if got.TrimStart != 3 || got.StartTime != 3 {
		t.Fatalf("Trim() = %+v, want TrimStart 3 and StartTime 3", got)
	}
	if !almostEqual(got.Span().End, 10) {
		t.Fatalf("opposite edge moved: footprint end = %v, want 10", got.Span().End)
	}
}

func TestTrim_RejectsBelowMinimumDuration(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 10})
	clip := mustPlace(t, s, "a", 0, 0)

	if _, err := s.Trim(clip.ID, SideEnd, 0.05); !errors.Is(err, ErrInvalidTrim) {
		t.Fatalf("Trim() error = %v, want ErrInvalidTrim", err)
	}

	unchanged, _ := s.Get(clip.ID)
	if unchanged.TrimEnd != 10 {
		t.Fatalf("failed trim mutated clip: %+v", unchanged)
	}
}

func TestTrim_RejectsOverlapAndPreservesState(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 5, "c": 2})
	mustPlace(t, s, "a", 0, 0) // [0,5)
	second := mustPlace(t, s, "b", 0, 5)

	// Pull the second clip's head in, opening [5,7), then fill the gap.
	if _, err := s.Trim(second.ID, SideStart, 2); err != nil {
		t.Fatalf("Trim(start, 2) error = %v", err)
	}
	mustPlace(t, s, "c", 0, 5) // [5,7)

	// Restoring the head would collide with the gap filler.
	if _, err := s.Trim(second.ID, SideStart, 0); !errors.Is(err, ErrOverlap) {
		t.Fatalf("Trim() error = %v, want ErrOverlap", err)
	}

	unchanged, _ := s.Get(second.ID)
	if unchanged.TrimStart != 2 || unchanged.StartTime != 7 {
		t.Fatalf("failed trim mutated clip: %+v", unchanged)
	}
	assertNoOverlaps(t, s)
}

func TestSplit_ProducesContiguousHalves(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 10})
	clip := mustPlace(t, s, "a", 0, 10) // [10,20)

	first, second, err := s.Split(clip.ID, 15)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if first.ID != clip.ID {
		t.Errorf("first half id = %s, want original %s", first.ID, clip.ID)
	}
	if first.StartTime != 10 || !almostEqual(first.Span().End, 15) {
		t.Errorf("first span = [%v, %v), want [10, 15)", first.StartTime, first.Span().End)
	}
	if second.StartTime != 15 || !almostEqual(second.Span().End, 20) {
		t.Errorf("second span = [%v, %v), want [15, 20)", second.StartTime, second.Span().End)
	}
	if !almostEqual(first.TrimEnd, second.TrimStart) {
		t.Errorf("source trim not contiguous: first ends %v, second starts %v", first.TrimEnd, second.TrimStart)
	}
	if first.TrimStart != 0 || second.TrimEnd != 10 {
		t.Errorf("outer trim boundaries changed: %+v / %+v", first, second)
	}
	assertNoOverlaps(t, s)
}

func TestSplit_OutsideSpanFails(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 10})
	clip := mustPlace(t, s, "a", 0, 10) // [10,20)

	for _, at := range []float64{10, 20, 25, 3} {
		if _, _, err := s.Split(clip.ID, at); !errors.Is(err, ErrNotWithinClip) {
			t.Errorf("Split(at %v) error = %v, want ErrNotWithinClip", at, err)
		}
	}

	if got := len(s.Clips()); got != 1 {
		t.Fatalf("failed splits changed clip count: %d", got)
	}
}

func TestDelete_LeavesGapOpen(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 5})
	first := mustPlace(t, s, "a", 0, 0)
	mustPlace(t, s, "b", 0, 5)

	if err := s.Delete(first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := s.ClipAt(2); ok {
		t.Fatal("expected a gap at t=2 after delete")
	}
	second, ok := s.ClipAt(7)
	if !ok || second.StartTime != 5 {
		t.Fatalf("second clip rippled: %+v, ok=%v", second, ok)
	}
}

func TestClipAt_HalfOpenBoundary(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 4})
	mustPlace(t, s, "a", 0, 0) // [0,5)
	second := mustPlace(t, s, "b", 0, 5)

	got, ok := s.ClipAt(5)
	if !ok {
		t.Fatal("ClipAt(5) found nothing")
	}
	if got.ID != second.ID {
		t.Fatalf("ClipAt(5) = clip starting %v, want the next clip", got.StartTime)
	}
}

func TestTotalDuration(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 4})

	if got := s.TotalDuration(); got != 0 {
		t.Fatalf("empty TotalDuration() = %v, want 0", got)
	}

	mustPlace(t, s, "a", 0, 0)
	mustPlace(t, s, "b", 1, 40) // other tracks are not composited

	if got := s.TotalDuration(); got != 5 {
		t.Fatalf("TotalDuration() = %v, want 5", got)
	}
}

func TestSnapshot_IsolatedFromLaterEdits(t *testing.T) {
	s := NewStore(fakeLibrary{"a": 5, "b": 4})
	mustPlace(t, s, "a", 0, 0)

	snap := s.Snapshot()
	mustPlace(t, s, "b", 0, 5)
	if _, err := s.Trim(snap[0].ID, SideEnd, 3); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}

	if len(snap) != 1 || snap[0].TrimEnd != 5 {
		t.Fatalf("snapshot changed under edits: %+v", snap)
	}
}

func mustPlace(t *testing.T, s *Store, sourceID string, track int, start float64) Clip {
	t.Helper()
	clip, err := s.Place(sourceID, track, start)
	if err != nil {
		t.Fatalf("Place(%s, %d, %v) error = %v", sourceID, track, start, err)
	}
	return clip
}

// assertNoOverlaps checks the store-wide invariant directly: no two clips on
// the same track may share composition time.
func assertNoOverlaps(t *testing.T, s *Store) {
	t.Helper()
	clips := s.Clips()
	for i := range clips {
		for j := i + 1; j < len(clips); j++ {
			if clips[i].Track != clips[j].Track {
				continue
			}
			if clips[i].Span().Overlaps(clips[j].Span()) {
				t.Fatalf("clips %s and %s overlap: %+v vs %+v",
					clips[i].ID, clips[j].ID, clips[i].Span(), clips[j].Span())
			}
		}
	}
}
