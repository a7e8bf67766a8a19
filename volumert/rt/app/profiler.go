package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler times named CPU scopes of a frame and keeps counters. Scope
// times accumulate until Reset, so a window of frames reads as a total.
type Profiler struct {
	Scopes map[string]time.Duration
	Counts map[string]int
	// Order is the order scopes were first entered.
	Order []string

	open map[string]time.Time
	now  func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes: make(map[string]time.Duration),
		Counts: make(map[string]int),
		open:   make(map[string]time.Time),
		now:    time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	if _, seen := p.Scopes[name]; !seen {
		p.Scopes[name] = 0
		p.Order = append(p.Order, name)
	}
	p.open[name] = p.now()
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.open[name]
	if !ok {
		return
	}
	delete(p.open, name)
	p.Scopes[name] += p.now().Sub(start)
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Inc(name string) {
	p.Counts[name]++
}

// Reset zeroes the scope totals and keeps counters and order.
func (p *Profiler) Reset() {
	for name := range p.Scopes {
		p.Scopes[name] = 0
	}
}

// Summary lists scope totals in entry order, then counters by name.
func (p *Profiler) Summary() string {
	var sb strings.Builder
	sb.WriteString("cpu:\n")
	for _, name := range p.Order {
		fmt.Fprintf(&sb, "  %-12s %8.2f ms\n", name, float64(p.Scopes[name].Microseconds())/1000)
	}

	names := make([]string, 0, len(p.Counts))
	for name := range p.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	sb.WriteString("counts:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-12s %8d\n", name, p.Counts[name])
	}
	return sb.String()
}

// FPSCounter averages frame rate over windows of at least a second.
type FPSCounter struct {
	frames  int
	elapsed float32
	FPS     float32
}

// Add records a frame of dt seconds and reports whether FPS was refreshed.
func (c *FPSCounter) Add(dt float32) bool {
	c.frames++
	c.elapsed += dt
	if c.elapsed < 1 {
		return false
	}
	c.FPS = float32(c.frames) / c.elapsed
	c.frames, c.elapsed = 0, 0
	return true
}
