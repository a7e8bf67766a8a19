package core

type Key int

const (
	KeyUnknown Key = iota
	KeyA
	KeyD
	KeyS
	KeyW
	KeySpace
	KeyLeftControl
	KeyEscape
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
)

type EventKind int

const (
	EventQuit EventKind = iota
	EventKeyDown
	EventKeyUp
)

// Event is what the window layer delivers to the loop.
type Event struct {
	Kind EventKind
	Key  Key
}

// InputState holds the last known activation (0 or 1) of every key seen so far.
type InputState struct {
	keys map[Key]float32
}

func NewInputState() *InputState {
	return &InputState{keys: make(map[Key]float32)}
}

func (s *InputState) Set(k Key, v float32) {
	s.keys[k] = v
}

// Get returns 0 for keys never seen.
func (s *InputState) Get(k Key) float32 {
	return s.keys[k]
}

// Axis is Get(pos) - Get(neg).
func (s *InputState) Axis(pos, neg Key) float32 {
	return s.keys[pos] - s.keys[neg]
}

// Apply folds one event into the state and reports whether the loop keeps running.
func (s *InputState) Apply(e Event) bool {
	switch e.Kind {
	case EventQuit:
		return false
	case EventKeyDown:
		s.keys[e.Key] = 1
		return e.Key != KeyEscape
	case EventKeyUp:
		s.keys[e.Key] = 0
	}
	return true
}

// ApplyAll drains events in order; it keeps applying after a quit so the
// key state stays consistent.
func (s *InputState) ApplyAll(events []Event) bool {
	running := true
	for _, e := range events {
		running = s.Apply(e) && running
	}
	return running
}
