package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger("light", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	l.Infof("volume %s", "ready")
	l.Errorf("shader not compiled")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[light] INFO: volume ready")
	assert.Contains(t, errOut.String(), "[light] ERROR: shader not compiled")

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	assert.Contains(t, out.String(), "DEBUG: shown 2")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Errorf("ignored")
}

func TestLogf_RoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger("", false, &out, &errOut)

	l.Logf(LevelWarn, "surface %dx%d", 800, 600)
	l.Logf(LevelInfo, "ready")

	assert.Contains(t, errOut.String(), "WARN: surface 800x600")
	assert.NotContains(t, errOut.String(), "ready")
	assert.Contains(t, out.String(), "INFO: ready")
	assert.NotContains(t, out.String(), "[")
	assert.Equal(t, "LEVEL(9)", Level(9).String())
}
