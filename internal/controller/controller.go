// Package controller runs the autoscaling control loop: sample every VM in
// the pool, evaluate the scaling policy against the readings, and apply the
// resulting decisions to the pool and the simulation engine.
//
// The controller owns consistency between the pool and the engine. The pool
// is the controller's view of the world; the engine is the world. Every
// mutation goes pool-first on scale-up (with a compensating removal if the
// engine rejects the VM) and engine-first on scale-down (the pool record is
// only dropped once the engine acknowledged the removal).
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hollenbach/scalesim/internal/errors"
	"github.com/hollenbach/scalesim/internal/event"
	"github.com/hollenbach/scalesim/internal/job"
	"github.com/hollenbach/scalesim/internal/logging"
	"github.com/hollenbach/scalesim/internal/sampler"
	"github.com/hollenbach/scalesim/internal/scaling"
	"github.com/hollenbach/scalesim/internal/vm"
)

// DefaultSampleTimeout bounds how long the controller waits on a single
// utilization sample before treating the VM as unavailable for the cycle.
const DefaultSampleTimeout = 2 * time.Second

// Engine is the subset of the simulation engine the controller drives.
// Mutations may fail; the controller compensates so the pool never drifts
// from what the engine accepted.
type Engine interface {
	// SubmitVMs asks the engine to admit new VMs.
	SubmitVMs(vms []vm.VM) error

	// RequestVMRemoval asks the engine to drain and release a VM.
	// A nil return is the acknowledgement that makes removal durable.
	RequestVMRemoval(vmID int) error

	// CloudletCompletions returns the completion records accumulated so far.
	CloudletCompletions() []job.Completion
}

// Stats summarizes a controller run. It is reported even when the run is
// cut short by context cancellation.
type Stats struct {
	Cycles         int // Control cycles completed
	ScaleUps       int // VMs added
	ScaleDowns     int // VMs removed (engine-acknowledged)
	NoOps          int // Decisions that required no change
	SampleFailures int // Readings missing due to sampler errors or timeouts
	FailedSubmits  int // Scale-ups rolled back after engine rejection
	FailedRemovals int // Scale-downs deferred because the engine did not ack
	FinalPoolSize  int // Pool size when the run ended
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithBus sets the event bus for lifecycle events. Optional.
func WithBus(bus *event.Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithSampleTimeout overrides the per-VM sample timeout.
func WithSampleTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.sampleTimeout = d
		}
	}
}

// WithBeforeCycle registers a hook invoked at the start of every cycle,
// before sampling. The run command uses it to advance simulated time
// between control cycles.
func WithBeforeCycle(fn func(cycle int)) Option {
	return func(c *Controller) { c.beforeCycle = fn }
}

// Controller drives the scale-up/scale-down loop over a VM pool.
type Controller struct {
	pool    *vm.Pool
	smp     sampler.Sampler
	engine  Engine
	bus     *event.Bus
	log     *logging.Logger
	history []event.CycleCompletedEvent

	mu     sync.RWMutex // guards policy for live reconfiguration
	policy *scaling.Policy

	sampleTimeout time.Duration
	beforeCycle   func(cycle int)

	// pendingRemoval holds VMs the engine has not yet acknowledged
	// releasing. They stay in the pool, read as unavailable, and are
	// retried at the start of every apply phase.
	pendingRemoval map[int]bool

	stats Stats
}

// New creates a controller over the given pool, sampler, policy, and engine.
func New(pool *vm.Pool, smp sampler.Sampler, policy *scaling.Policy, eng Engine, opts ...Option) (*Controller, error) {
	if pool == nil || smp == nil || policy == nil || eng == nil {
		return nil, fmt.Errorf("%w: controller requires pool, sampler, policy, and engine", errors.ErrInvalidInput)
	}

	c := &Controller{
		pool:           pool,
		smp:            smp,
		policy:         policy,
		engine:         eng,
		log:            logging.NopLogger(),
		sampleTimeout:  DefaultSampleTimeout,
		pendingRemoval: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UpdatePolicy swaps the scaling policy. The new policy takes effect at the
// next cycle boundary; the cycle in flight finishes under the old one.
func (c *Controller) UpdatePolicy(p *scaling.Policy) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.policy = p
	c.mu.Unlock()
	c.log.Info("scaling policy updated",
		"upper_threshold", p.UpperThreshold(),
		"lower_threshold", p.LowerThreshold(),
		"min_pool_size", p.MinPoolSize())
}

// Stats returns the run summary so far.
func (c *Controller) Stats() Stats {
	s := c.stats
	s.FinalPoolSize = c.pool.Size()
	return s
}

// History returns the per-cycle records accumulated during the run.
func (c *Controller) History() []event.CycleCompletedEvent {
	out := make([]event.CycleCompletedEvent, len(c.history))
	copy(out, c.history)
	return out
}

// Run executes up to the given number of control cycles, stopping early if
// the context is cancelled. Cancellation is only observed at cycle
// boundaries: a cycle that has started its apply phase always finishes, so
// the pool and engine never part ways. The returned Stats are valid in
// either case.
func (c *Controller) Run(ctx context.Context, cycles int) (Stats, error) {
	if cycles < 0 {
		return c.Stats(), fmt.Errorf("%w: cycles must be non-negative, got %d", errors.ErrInvalidInput, cycles)
	}

	for i := 1; i <= cycles; i++ {
		select {
		case <-ctx.Done():
			c.log.Info("run cancelled", "completed_cycles", c.stats.Cycles)
			return c.Stats(), ctx.Err()
		default:
		}

		if c.beforeCycle != nil {
			c.beforeCycle(i)
		}
		c.runCycle(ctx, i)
	}

	s := c.Stats()
	c.log.Info("run finished",
		"cycles", s.Cycles,
		"scale_ups", s.ScaleUps,
		"scale_downs", s.ScaleDowns,
		"final_pool_size", s.FinalPoolSize)
	return s, nil
}

// runCycle performs one sample-decide-apply pass. The pool snapshot taken
// here is the fixed input for the whole cycle: VMs added mid-cycle are not
// sampled, and the policy's floor check uses the snapshot size.
func (c *Controller) runCycle(ctx context.Context, cycle int) {
	log := c.log.WithCycle(cycle)

	snapshot := c.pool.Snapshot()
	readings := c.sampleAll(ctx, log, snapshot)

	c.mu.RLock()
	policy := c.policy
	c.mu.RUnlock()

	decisions := policy.Evaluate(snapshot, readings)
	ups, downs := c.apply(log, decisions)

	c.stats.Cycles++
	rec := event.NewCycleCompletedEvent(cycle, c.pool.Size(), ups, downs)
	c.history = append(c.history, rec)
	if c.bus != nil {
		c.bus.Publish(rec)
	}
	log.Info("cycle completed",
		"pool_size", c.pool.Size(),
		"scale_ups", ups,
		"scale_downs", downs)
}

// sampleAll collects utilization readings for every VM in the snapshot,
// one goroutine per VM, each bounded by the sample timeout. VMs with a
// removal still pending and VMs whose sample fails are simply absent from
// the result; the policy treats absence as "no decision".
func (c *Controller) sampleAll(ctx context.Context, log *logging.Logger, snapshot []vm.VM) map[int]float64 {
	type result struct {
		vmID    int
		reading float64
		err     error
	}

	results := make(chan result, len(snapshot))
	var wg sync.WaitGroup
	sampled := 0

	for _, v := range snapshot {
		if c.pendingRemoval[v.ID] {
			log.Debug("skipping sample for vm pending removal", "vm_id", v.ID)
			continue
		}
		sampled++
		wg.Add(1)
		go func(vmID int) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, c.sampleTimeout)
			defer cancel()
			reading, err := c.smp.Sample(sctx, vmID)
			results <- result{vmID: vmID, reading: reading, err: err}
		}(v.ID)
	}

	wg.Wait()
	close(results)

	readings := make(map[int]float64, sampled)
	for r := range results {
		if r.err != nil {
			c.stats.SampleFailures++
			log.Warn("utilization sample unavailable", "vm_id", r.vmID, "error", r.err)
			continue
		}
		log.Info("utilization sampled", "vm_id", r.vmID, "utilization", r.reading)
		readings[r.vmID] = r.reading
	}
	return readings
}

// apply executes the cycle's decisions in order, retrying any removals left
// pending from earlier cycles first. Returns the number of scale-ups and
// engine-acknowledged scale-downs applied.
func (c *Controller) apply(log *logging.Logger, decisions []scaling.Decision) (ups, downs int) {
	c.retryPendingRemovals(log)

	for _, d := range decisions {
		switch d.Action {
		case scaling.ActionScaleUp:
			if c.scaleUp(log, d) {
				ups++
			}
		case scaling.ActionScaleDown:
			if c.scaleDown(log, d) {
				downs++
			}
		default:
			c.stats.NoOps++
			log.Debug("no scaling action", "vm_id", d.VMID, "reason", d.Reason)
		}
	}
	return ups, downs
}

// scaleUp adds a VM to the pool and submits it to the engine. If the engine
// rejects the VM, the pool record is removed again so the two views stay
// consistent; the freshly assigned ID is burned either way.
func (c *Controller) scaleUp(log *logging.Logger, d scaling.Decision) bool {
	newVM := c.pool.Add(d.Template)

	if err := c.engine.SubmitVMs([]vm.VM{newVM}); err != nil {
		c.stats.FailedSubmits++
		log.Error("engine rejected new vm, rolling back",
			"vm_id", newVM.ID, "source_vm", d.VMID, "error", err)
		if rbErr := c.pool.Remove(newVM.ID); rbErr != nil {
			// Floor violations cannot happen on a rollback of an Add;
			// anything here means the pool was mutated concurrently.
			log.Error("rollback failed", "vm_id", newVM.ID, "error", rbErr)
		}
		return false
	}

	c.stats.ScaleUps++
	log.Info("scaled up",
		"vm_id", newVM.ID,
		"source_vm", d.VMID,
		"utilization", d.Utilization,
		"pool_size", c.pool.Size())
	if c.bus != nil {
		c.bus.Publish(event.NewVMAddedEvent(newVM.ID, newVM.Profile.MIPS, newVM.Profile.PEs, d.VMID))
	}
	return true
}

// scaleDown removes a VM, engine first. Without the engine's ack the pool
// keeps the record and the VM joins the pending set for retry next cycle.
// The floor is re-checked against the live pool before the engine drains
// anything: deferred removals from earlier cycles may have shrunk the pool
// since the policy saw its snapshot.
func (c *Controller) scaleDown(log *logging.Logger, d scaling.Decision) bool {
	if c.pool.Size() <= c.pool.MinSize() {
		c.stats.NoOps++
		log.Warn("pool shrank to floor since snapshot, keeping vm", "vm_id", d.VMID)
		return false
	}
	if err := c.engine.RequestVMRemoval(d.VMID); err != nil {
		if errors.Is(err, errors.ErrVMNotFound) {
			// The engine never knew this VM; drop our record too.
			log.Warn("engine has no record of vm, dropping from pool", "vm_id", d.VMID)
			c.removeFromPool(log, d.VMID, d.Reason)
			return false
		}
		c.stats.FailedRemovals++
		c.pendingRemoval[d.VMID] = true
		log.Warn("engine did not acknowledge removal, deferring",
			"vm_id", d.VMID, "error", err)
		return false
	}

	if !c.removeFromPool(log, d.VMID, d.Reason) {
		return false
	}
	c.stats.ScaleDowns++
	log.Info("scaled down",
		"vm_id", d.VMID,
		"utilization", d.Utilization,
		"pool_size", c.pool.Size())
	return true
}

// retryPendingRemovals re-asks the engine for every deferred removal,
// stopping once the pool floor would be reached.
func (c *Controller) retryPendingRemovals(log *logging.Logger) {
	for vmID := range c.pendingRemoval {
		if c.pool.Size() <= c.pool.MinSize() {
			log.Warn("pool at floor, keeping deferred removals pending",
				"pending", len(c.pendingRemoval))
			return
		}
		err := c.engine.RequestVMRemoval(vmID)
		if err != nil && !errors.Is(err, errors.ErrVMNotFound) {
			log.Warn("removal still unacknowledged", "vm_id", vmID, "error", err)
			continue
		}
		delete(c.pendingRemoval, vmID)
		if c.removeFromPool(log, vmID, "deferred removal") {
			c.stats.ScaleDowns++
			log.Info("deferred removal completed", "vm_id", vmID, "pool_size", c.pool.Size())
		}
	}
}

// removeFromPool drops the pool record and publishes the removal event.
// A floor violation here means the pool shrank since the decision was made;
// the removal is abandoned rather than breaking the minimum-size guarantee.
func (c *Controller) removeFromPool(log *logging.Logger, vmID int, reason string) bool {
	if err := c.pool.Remove(vmID); err != nil {
		if errors.Is(err, errors.ErrPoolFloor) {
			log.Warn("removal would breach pool floor, keeping vm", "vm_id", vmID)
		} else if !errors.Is(err, errors.ErrVMNotFound) {
			log.Error("pool removal failed", "vm_id", vmID, "error", err)
		}
		return false
	}
	if c.bus != nil {
		c.bus.Publish(event.NewVMRemovedEvent(vmID, reason))
	}
	return true
}
