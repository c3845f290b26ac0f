package playback

import "sync"

// StateLoader is a MediaLoader for an HTTP-driven player. The agent never
// decodes frames itself; the browser player does. Loading therefore just
// records which source and offset the client should be showing, and the
// cursor endpoint reads it back.
type StateLoader struct {
	mu         sync.Mutex
	sourceID   string
	sourceTime float64
}

func NewStateLoader() *StateLoader {
	return &StateLoader{}
}

func (l *StateLoader) Load(sourceID string, sourceTime float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sourceID = sourceID
	l.sourceTime = sourceTime
	return nil
}

func (l *StateLoader) Seek(sourceTime float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sourceTime = sourceTime
	return nil
}

// Current returns the loaded source and its seek position.
func (l *StateLoader) Current() (string, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sourceID, l.sourceTime
}
