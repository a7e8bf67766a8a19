package app

import (
	"github.com/gekko3d/light/volumert/rt/core"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var glfwToKey = map[glfw.Key]core.Key{
	glfw.KeyA:           core.KeyA,
	glfw.KeyD:           core.KeyD,
	glfw.KeyS:           core.KeyS,
	glfw.KeyW:           core.KeyW,
	glfw.KeySpace:       core.KeySpace,
	glfw.KeyLeftControl: core.KeyLeftControl,
	glfw.KeyEscape:      core.KeyEscape,
	glfw.KeyRight:       core.KeyRight,
	glfw.KeyLeft:        core.KeyLeft,
	glfw.KeyDown:        core.KeyDown,
	glfw.KeyUp:          core.KeyUp,
}

// keyEvent maps a GLFW key callback to an event. Repeats carry no news.
func keyEvent(key glfw.Key, action glfw.Action) (core.Event, bool) {
	k, ok := glfwToKey[key]
	if !ok {
		return core.Event{}, false
	}
	switch action {
	case glfw.Press:
		return core.Event{Kind: core.EventKeyDown, Key: k}, true
	case glfw.Release:
		return core.Event{Kind: core.EventKeyUp, Key: k}, true
	}
	return core.Event{}, false
}

// Window is a borderless GLFW window without a client API, queueing input
// as events for the frame loop. Must be used from the main thread.
type Window struct {
	Glfw   *glfw.Window
	events []core.Event
}

// NewWindow initialises GLFW and opens the window at the top-left corner.
func NewWindow(width, height int, title string) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	win.SetPos(0, 0)

	w := &Window{Glfw: win}
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if e, ok := keyEvent(key, action); ok {
			w.events = append(w.events, e)
		}
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		w.events = append(w.events, core.Event{Kind: core.EventQuit})
	})
	return w, nil
}

// Poll pumps the GLFW queue and returns the events since the last call.
func (w *Window) Poll() []core.Event {
	w.events = w.events[:0]
	glfw.PollEvents()
	return w.events
}

func (w *Window) Close() {
	w.Glfw.Destroy()
	glfw.Terminate()
}
