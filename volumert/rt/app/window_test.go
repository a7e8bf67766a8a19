package app

import (
	"testing"

	"github.com/gekko3d/light/volumert/rt/core"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestKeyEvent(t *testing.T) {
	e, ok := keyEvent(glfw.KeyW, glfw.Press)
	assert.True(t, ok)
	assert.Equal(t, core.Event{Kind: core.EventKeyDown, Key: core.KeyW}, e)

	e, ok = keyEvent(glfw.KeyLeftControl, glfw.Release)
	assert.True(t, ok)
	assert.Equal(t, core.Event{Kind: core.EventKeyUp, Key: core.KeyLeftControl}, e)

	_, ok = keyEvent(glfw.KeyW, glfw.Repeat)
	assert.False(t, ok)
	_, ok = keyEvent(glfw.KeyF12, glfw.Press)
	assert.False(t, ok)
}
