package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
)

const (
	BackendWGPU = "wgpu"
	BackendSoft = "soft"
)

// Config holds the run parameters. Seed 0 derives a seed from the clock.
type Config struct {
	Backend      string  `json:"backend"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Seed         int64   `json:"seed"`
	VolumeSize   int     `json:"volume_size"`
	SamplingStep float64 `json:"sampling_step"`
	ShaderDir    string  `json:"shader_dir"`
	Debug        bool    `json:"debug"`
	Headless     int     `json:"headless"`
	Out          string  `json:"out"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:      BackendWGPU,
		Width:        2560,
		Height:       1440,
		VolumeSize:   256,
		SamplingStep: 0.5,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Backend, "backend", c.Backend, "gpu backend: wgpu or soft")
	fs.IntVar(&c.Width, "width", c.Width, "display width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "display height in pixels")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "noise table seed, 0 picks one from the clock")
	fs.IntVar(&c.VolumeSize, "volume", c.VolumeSize, "edge of the density volume in voxels")
	fs.Float64Var(&c.SamplingStep, "step", c.SamplingStep, "raymarch sampling step in world units")
	fs.StringVar(&c.ShaderDir, "shaders", c.ShaderDir, "read shaders from this directory instead of the embedded copies")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "debug logging and frame stats")
	fs.IntVar(&c.Headless, "headless", c.Headless, "render this many frames on the soft backend without a window, ignoring -backend")
	fs.StringVar(&c.Out, "out", c.Out, "headless output PNG, default light-<session>.png")
}

// LoadFile reads a JSON config over the defaults.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["backend"] {
		cfg.Backend = fromFile.Backend
	}
	if !explicitFlags["width"] {
		cfg.Width = fromFile.Width
	}
	if !explicitFlags["height"] {
		cfg.Height = fromFile.Height
	}
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["volume"] {
		cfg.VolumeSize = fromFile.VolumeSize
	}
	if !explicitFlags["step"] {
		cfg.SamplingStep = fromFile.SamplingStep
	}
	if !explicitFlags["shaders"] {
		cfg.ShaderDir = fromFile.ShaderDir
	}
	if !explicitFlags["debug"] {
		cfg.Debug = fromFile.Debug
	}
	if !explicitFlags["headless"] {
		cfg.Headless = fromFile.Headless
	}
	if !explicitFlags["out"] {
		cfg.Out = fromFile.Out
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Backend != BackendWGPU && c.Backend != BackendSoft {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("bad display size %dx%d", c.Width, c.Height))
	}
	if c.VolumeSize <= 0 {
		errs = append(errs, fmt.Errorf("bad volume size %d", c.VolumeSize))
	}
	if c.SamplingStep <= 0 {
		errs = append(errs, fmt.Errorf("sampling step must be positive, got %g", c.SamplingStep))
	}
	if c.Headless < 0 {
		errs = append(errs, fmt.Errorf("bad headless frame count %d", c.Headless))
	}
	return errors.Join(errs...)
}

// ParseArgs builds the Config for a command line. A -config file fills
// every field not given as a flag.
func ParseArgs(name string, args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Bind(fs)
	configPath := fs.String("config", "", "JSON config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		fromFile, err := LoadFile(*configPath)
		if err != nil {
			return nil, err
		}
		explicit := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		Merge(cfg, fromFile, explicit)
	}
	return cfg, cfg.Validate()
}

