package playback

import (
	"sync"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// Mode says what the playback cursor is pointed at: a raw source file being
// previewed directly, or the composition itself.
type Mode int

const (
	ModeMedia Mode = iota
	ModeTimeline
)

func (m Mode) String() string {
	switch m {
	case ModeMedia:
		return "media"
	case ModeTimeline:
		return "timeline"
	default:
		return "unknown"
	}
}

// Composition is the committed clip state the mapper reads during playback.
// *timeline.Store satisfies it.
type Composition interface {
	ClipAt(t float64) (timeline.Clip, bool)
	Get(id string) (timeline.Clip, bool)
	TotalDuration() float64
}

// MediaLoader is the player backend. Load opens a source and seeks it;
// Seek repositions within the already-loaded source. The mapper calls Load
// only when the backing source actually changes, so scrubbing inside one
// clip never reopens the file.
type MediaLoader interface {
	Load(sourceID string, sourceTime float64) error
	Seek(sourceTime float64) error
}

// Cursor is a read-only snapshot of the mapper's state.
type Cursor struct {
	Mode            Mode    `json:"-"`
	ModeName        string  `json:"mode"`
	CompositionTime float64 `json:"composition_time"`
	SourceTime      float64 `json:"source_time"`
	ActiveClipID    string  `json:"active_clip_id,omitempty"`
	SourceID        string  `json:"source_id,omitempty"`
	Playing         bool    `json:"playing"`
}

// Mapper translates a composition-time cursor into (active clip, source
// time) and owns the Media/Timeline mode switch. All methods are safe for
// concurrent use; composition reads go through the store's own lock.
type Mapper struct {
	comp   Composition
	loader MediaLoader

	mu              sync.Mutex
	mode            Mode
	playing         bool
	compositionTime float64
	activeClipID    string
	sourceID        string
	sourceTime      float64
}

func NewMapper(comp Composition, loader MediaLoader) *Mapper {
	return &Mapper{comp: comp, loader: loader}
}

// SelectSource switches to direct preview of a single source file, loaded
// from its beginning. Any timeline cursor state is discarded.
func (m *Mapper) SelectSource(sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loader.Load(sourceID, 0); err != nil {
		return err
	}
	m.mode = ModeMedia
	m.playing = false
	m.compositionTime = 0
	m.activeClipID = ""
	m.sourceID = sourceID
	m.sourceTime = 0
	return nil
}

// SelectClip switches to timeline mode with the cursor at the clip's start.
func (m *Mapper) SelectClip(id string) error {
	clip, ok := m.comp.Get(id)
	if !ok {
		return timeline.ErrUnknownClip
	}
	return m.SeekComposition(clip.StartTime)
}

// SeekComposition moves the timeline cursor to t, switching to timeline mode
// if needed. The clip lookup re-runs on every seek so the frame shown always
// belongs to the clip that owns t, including at clip joins where the earlier
// clip's end touches the later clip's start.
func (m *Mapper) SeekComposition(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mode = ModeTimeline
	return m.seekLocked(t)
}

// Play starts advancing the cursor. In timeline mode a cursor already at or
// past the end stays stopped.
func (m *Mapper) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeTimeline && m.compositionTime >= m.comp.TotalDuration() {
		return
	}
	m.playing = true
}

func (m *Mapper) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

// Advance moves the cursor forward by dt seconds of natural playback. In
// timeline mode crossing into the next clip reloads the backing source; if
// the new time falls in a gap or past the last clip, the cursor clamps to
// the composition's total duration and playback stops.
func (m *Mapper) Advance(dt float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.playing {
		return nil
	}
	if m.mode == ModeMedia {
		m.sourceTime += dt
		return m.loader.Seek(m.sourceTime)
	}
	return m.seekLocked(m.compositionTime + dt)
}

// Cursor returns a snapshot of the current playback state.
func (m *Mapper) Cursor() Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Cursor{
		Mode:            m.mode,
		ModeName:        m.mode.String(),
		CompositionTime: m.compositionTime,
		SourceTime:      m.sourceTime,
		ActiveClipID:    m.activeClipID,
		SourceID:        m.sourceID,
		Playing:         m.playing,
	}
}

// seekLocked is the single mapping step: find the clip owning t, compute its
// source time, and reload only when the active clip changed.
func (m *Mapper) seekLocked(t float64) error {
	if t < 0 {
		t = 0
	}

	clip, ok := m.comp.ClipAt(t)
	if !ok {
		// Gap or end of composition: clamp and stop.
		m.compositionTime = m.comp.TotalDuration()
		m.playing = false
		m.activeClipID = ""
		m.sourceID = ""
		m.sourceTime = 0
		return nil
	}

	sourceTime := clip.TrimStart + (t - clip.StartTime)
	if clip.ID != m.activeClipID {
		if err := m.loader.Load(clip.SourceID, sourceTime); err != nil {
			return err
		}
		m.activeClipID = clip.ID
		m.sourceID = clip.SourceID
	} else if err := m.loader.Seek(sourceTime); err != nil {
		return err
	}
	m.compositionTime = t
	m.sourceTime = sourceTime
	return nil
}
