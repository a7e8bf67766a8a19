package shaders

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed generation/noise.wgsl
var NoiseWGSL string

//go:embed volume/raymarch.wgsl
var RaymarchWGSL string

//go:embed present/fullscreen.wgsl
var FullscreenWGSL string

//go:embed generation volume present
var files embed.FS

// Paths of the shaders relative to a shader directory.
const (
	NoisePath      = "generation/noise.wgsl"
	RaymarchPath   = "volume/raymarch.wgsl"
	FullscreenPath = "present/fullscreen.wgsl"
)

// Load returns the source at path. With dir empty the embedded copy is used,
// otherwise the file is read from dir so shaders can be edited without a
// rebuild.
func Load(dir, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if dir == "" {
		b, err = files.ReadFile(path)
	} else {
		b, err = os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	}
	if err != nil {
		return "", fmt.Errorf("load shader %s: %w", path, err)
	}
	return string(b), nil
}
