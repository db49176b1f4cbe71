// Package engine provides the per-tick city update and the loop that
// drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TickSchedule defines when each layer runs relative to the tick counter.
// One tick is one sim-day.
const (
	TicksPerMonth = 30
	TicksPerYear  = 360
)

// DefaultInterval is the wall-clock time between ticks at speed 1.
const DefaultInterval = 3 * time.Second

// Engine drives the simulation forward. Callbacks run on the Run goroutine,
// one at a time, so a tick never overlaps the next. The zero value is a
// paused engine with the default interval.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Base tick interval

	// Callbacks for each tick layer, populated during setup.
	OnTick  func(tick uint64) // Every tick
	OnMonth func(tick uint64) // Every 30 ticks
	OnYear  func(tick uint64) // Every 360 ticks

	mu      sync.Mutex
	speed   float64 // Multiplier: 1.0 = normal, 0 = paused
	stop    chan struct{}
	changed chan struct{} // Wakes Run when the speed changes
}

// NewEngine creates a driver with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: DefaultInterval,
		speed:    1.0,
	}
}

// signals returns the stop and speed-change channels, creating them on
// first use. Caller holds e.mu.
func (e *Engine) signals() (stop, changed chan struct{}) {
	if e.stop == nil {
		e.stop = make(chan struct{})
	}
	if e.changed == nil {
		e.changed = make(chan struct{}, 1)
	}
	return e.stop, e.changed
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero or below pauses the loop.
// A running loop picks up the new speed without waiting out the old interval.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.speed = max(speed, 0)
	_, changed := e.signals()
	e.mu.Unlock()

	select {
	case changed <- struct{}{}:
	default:
	}
	slog.Info("simulation speed changed", "speed", speed)
}

func (e *Engine) interval() time.Duration {
	if e.Interval <= 0 {
		return DefaultInterval
	}
	return e.Interval
}

// Run starts the simulation loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	stop, changed := e.signals()
	e.mu.Unlock()

	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed(), "interval", e.interval())
	defer func() {
		slog.Info("simulation engine stopped", "tick", e.Tick)
	}()

	var last time.Time // Start of the previous tick
	for {
		wait := 100 * time.Millisecond
		if speed := e.Speed(); speed > 0 {
			// Tick interval, adjusted for speed.
			target := time.Duration(float64(e.interval()) / speed)
			if last.IsZero() || time.Since(last) >= target {
				last = time.Now()
				e.Step()
			}
			wait = max(target-time.Since(last), 0)
		}

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-changed:
		case <-time.After(wait):
		}
	}
}

// Stop halts the simulation loop. Safe to call more than once, and before Run.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	stop, _ := e.signals()
	select {
	case <-stop:
	default:
		close(stop)
	}
}

// Step advances the simulation by one tick and fires the due layers.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	if e.Tick%TicksPerMonth == 0 && e.OnMonth != nil {
		e.OnMonth(e.Tick)
	}
	if e.Tick%TicksPerYear == 0 && e.OnYear != nil {
		e.OnYear(e.Tick)
	}
}

// SimTime returns a human-readable date from a tick number.
func SimTime(tick uint64) string {
	days := tick % TicksPerMonth
	months := tick / TicksPerMonth
	return fmt.Sprintf("Year %d, Month %d, Day %d", months/12+1, months%12+1, days+1)
}
