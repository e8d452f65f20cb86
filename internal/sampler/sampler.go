// Package sampler provides pluggable utilization sources for the scaling
// controller. A sampler produces one per-VM CPU-busy reading in [0, 1] per
// control cycle.
//
// The synthetic Random source mirrors the classic demonstration setup;
// Sequence replays scripted readings for deterministic tests; the live
// metric-backed source is the simulation engine itself, adapted via Func.
package sampler

import (
	"context"
	"math/rand"
	"sync"

	"github.com/hollenbach/scalesim/internal/errors"
)

// Sampler produces a utilization reading in [0, 1] for a single VM.
// Reading the pool never mutates it. A failed sample must return an error
// matching errors.ErrSampleUnavailable; the controller degrades that VM to
// a no-op for the cycle.
type Sampler interface {
	Sample(ctx context.Context, vmID int) (float64, error)
}

// Func adapts an ordinary function to the Sampler interface.
type Func func(ctx context.Context, vmID int) (float64, error)

// Sample calls f.
func (f Func) Sample(ctx context.Context, vmID int) (float64, error) {
	return f(ctx, vmID)
}

// Random draws a uniform reading per call from an injected source.
// It is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a Random sampler seeded deterministically.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns a uniform reading in [0, 1). The vmID is ignored; every
// VM gets an independent draw.
func (r *Random) Sample(ctx context.Context, vmID int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.NewSampleError(vmID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64(), nil
}

// Sequence replays a fixed script of readings per VM. Each call consumes
// the next reading for that VM; once a VM's script is exhausted (or the VM
// was never scripted) further samples fail as unavailable, which the
// controller treats as a no-op.
//
// Sequence makes tests deterministic: pass the exact utilization vector a
// scenario requires instead of a random generator.
type Sequence struct {
	mu       sync.Mutex
	readings map[int][]float64
}

// NewSequence creates a Sequence from per-VM reading scripts.
// The map is copied; the caller may reuse it.
func NewSequence(readings map[int][]float64) *Sequence {
	copied := make(map[int][]float64, len(readings))
	for id, script := range readings {
		copied[id] = append([]float64(nil), script...)
	}
	return &Sequence{readings: copied}
}

// Sample pops the next scripted reading for the VM.
func (s *Sequence) Sample(ctx context.Context, vmID int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.NewSampleError(vmID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	script := s.readings[vmID]
	if len(script) == 0 {
		return 0, errors.NewSampleError(vmID, nil)
	}
	reading := script[0]
	s.readings[vmID] = script[1:]
	return reading, nil
}

// Remaining returns how many scripted readings are left for the VM.
func (s *Sequence) Remaining(vmID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings[vmID])
}
