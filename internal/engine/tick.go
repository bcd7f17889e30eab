// Package engine provides the day-tick loop and the Simulation aggregate that
// wires the world's stores to the raid engine.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Calendar.
const (
	DaysPerWeek    = 7
	DaysPerSeason  = 90
	SeasonsPerYear = 4
)

// Engine drives the simulation forward one sim-day at a time.
type Engine struct {
	Day      int           // Last day processed (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = one day per Interval, 0 = paused
	Interval time.Duration // Wall-clock length of one sim-day at speed 1

	// Callbacks for each tick layer, populated during setup.
	OnDay  func(day int) // Every day
	OnWeek func(day int) // Every DaysPerWeek days

	mu      sync.Mutex // serializes steps from Run and Advance
	running atomic.Bool
}

// NewEngine creates a day-tick engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Speed:    1.0,
		Interval: 10 * time.Second,
	}
}

// Run starts the simulation loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "day", e.CurrentDay(), "speed", e.Speed, "interval", e.Interval)

	for e.running.Load() {
		if e.Speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.mu.Lock()
		e.step()
		e.mu.Unlock()

		// Sleep for the remainder of the interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		for elapsed < target && e.running.Load() {
			nap := min(target-elapsed, 100*time.Millisecond)
			time.Sleep(nap)
			elapsed = time.Since(start)
		}
	}

	slog.Info("simulation engine stopped", "day", e.CurrentDay())
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Advance runs days steps immediately, outside the wall-clock schedule.
func (e *Engine) Advance(days int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for range max(days, 0) {
		e.step()
	}
	return e.Day
}

// CurrentDay returns the last day processed.
func (e *Engine) CurrentDay() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Day
}

// step advances the simulation by one day.
func (e *Engine) step() {
	e.Day++

	// Every day: raid phases, supply burn, daily report.
	if e.OnDay != nil {
		e.OnDay(e.Day)
	}

	// Every week: relation drift.
	if e.Day%DaysPerWeek == 0 && e.OnWeek != nil {
		e.OnWeek(e.Day)
	}
}

// SimTime returns a human-readable calendar date for a day number.
func SimTime(day int) string {
	day = max(day, 0)
	seasons := day / DaysPerSeason
	season := seasons % SeasonsPerYear
	years := seasons/SeasonsPerYear + 1

	seasonNames := [SeasonsPerYear]string{"Spring", "Summer", "Autumn", "Winter"}

	return fmt.Sprintf("%s Day %d, Year %d", seasonNames[season], day%DaysPerSeason+1, years)
}
