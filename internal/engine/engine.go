// Package engine implements the discrete-event simulation engine the
// scaling controller collaborates with: it places VMs onto hosts, executes
// cloudlets under a time-shared discipline, advances simulated time, and
// issues completion records.
//
// The engine also doubles as the metric-backed utilization source: its
// Sample method reports the live busy fraction of a VM, computed from the
// cloudlets currently running on it.
package engine

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/hollenbach/scalesim/internal/errors"
	"github.com/hollenbach/scalesim/internal/event"
	"github.com/hollenbach/scalesim/internal/job"
	"github.com/hollenbach/scalesim/internal/logging"
	"github.com/hollenbach/scalesim/internal/vm"
)

// HostSpec describes one physical host. Defaults match the classic
// single-host datacenter example.
type HostSpec struct {
	PEs           int
	MIPS          float64 // per PE
	RAMMB         int
	BandwidthMbps float64
	StorageGB     int
}

// DefaultHostSpec returns the default host configuration: 8 PEs at
// 1000 MIPS, 16 GB RAM, 10 Gbps, 1 TB storage.
func DefaultHostSpec() HostSpec {
	return HostSpec{
		PEs:           8,
		MIPS:          1000,
		RAMMB:         16384,
		BandwidthMbps: 10000,
		StorageGB:     1000,
	}
}

// host tracks the free capacity of one physical host.
type host struct {
	spec      HostSpec
	freePEs   int
	freeRAMMB int
}

// hostedVM is a VM the engine has admitted, its placement and the
// cloudlets currently executing on it.
type hostedVM struct {
	vm      vm.VM
	host    *host
	running []*job.Cloudlet
}

// Option configures an Engine.
type Option func(*Engine)

// WithHosts sets the number and shape of physical hosts.
func WithHosts(n int, spec HostSpec) Option {
	return func(e *Engine) {
		e.hosts = make([]*host, n)
		for i := range e.hosts {
			e.hosts[i] = &host{spec: spec, freePEs: spec.PEs, freeRAMMB: spec.RAMMB}
		}
	}
}

// WithBus sets the event bus job completions are published on.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log.WithComponent("engine") }
}

// Engine is the simulation engine. It is safe for concurrent use; the
// scaling controller may sample utilization while time advances.
type Engine struct {
	mu          sync.Mutex
	clock       float64
	hosts       []*host
	vms         map[int]*hostedVM
	vmOrder     []int // admitted VM IDs, sorted, for deterministic dispatch
	waiting     []*job.Cloudlet
	completions []job.Completion
	bus         *event.Bus
	log         *logging.Logger
}

// New creates an Engine with the given options. Without WithHosts it runs
// a single default host.
func New(opts ...Option) *Engine {
	e := &Engine{
		vms: make(map[int]*hostedVM),
		log: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.hosts) == 0 {
		WithHosts(1, DefaultHostSpec())(e)
	}
	return e
}

// SubmitVMs hands newly created VMs to the engine for placement onto
// hosts. Placement is first-fit over hosts in order. If any VM cannot be
// placed the error identifies it; VMs placed earlier in the batch stay
// placed.
func (e *Engine) SubmitVMs(vms []vm.VM) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range vms {
		placed := false
		for _, h := range e.hosts {
			if h.freePEs >= v.PEs && h.freeRAMMB >= v.RAMMB {
				h.freePEs -= v.PEs
				h.freeRAMMB -= v.RAMMB
				e.vms[v.ID] = &hostedVM{vm: v, host: h}
				e.vmOrder = append(e.vmOrder, v.ID)
				sort.Ints(e.vmOrder)
				placed = true
				break
			}
		}
		if !placed {
			return errors.NewEngineError("submit", "no host with free capacity", errors.ErrEngineSubmit).WithVM(v.ID)
		}
		e.log.Debug("vm admitted", "vm", v.ID, "pes", v.PEs, "mips", v.MIPS)
	}
	return nil
}

// RequestVMRemoval drains and stops a VM. Cloudlets still running on it
// are requeued and resume on another VM with their progress intact. A nil
// return is the removal acknowledgement.
func (e *Engine) RequestVMRemoval(vmID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	hv, ok := e.vms[vmID]
	if !ok {
		return errors.NewEngineError("remove", "vm not hosted", errors.ErrVMNotFound).WithVM(vmID)
	}
	// Draining the last VM while cloudlets are running or queued would
	// strand them with no host to resume on.
	if len(e.vms) == 1 && (len(hv.running) > 0 || len(e.waiting) > 0) {
		return errors.NewEngineError("remove", "last vm still has work", errors.ErrEngineRemoval).WithVM(vmID)
	}

	for _, c := range hv.running {
		if err := c.Queue(e.clock); err == nil {
			e.waiting = append(e.waiting, c)
		}
	}
	e.log.Debug("vm drained", "vm", vmID, "requeued", len(hv.running))

	hv.host.freePEs += hv.vm.PEs
	hv.host.freeRAMMB += hv.vm.RAMMB
	delete(e.vms, vmID)
	for i, id := range e.vmOrder {
		if id == vmID {
			e.vmOrder = append(e.vmOrder[:i], e.vmOrder[i+1:]...)
			break
		}
	}
	return nil
}

// SubmitCloudlets queues a batch of cloudlets for execution.
func (e *Engine) SubmitCloudlets(batch []*job.Cloudlet) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range batch {
		if err := c.Queue(e.clock); err != nil {
			continue
		}
		e.waiting = append(e.waiting, c)
	}
	e.log.Info("cloudlets submitted", "count", len(batch), "clock", e.clock)
}

// CloudletCompletions returns a copy of all completion records issued so
// far, in completion order.
func (e *Engine) CloudletCompletions() []job.Completion {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]job.Completion, len(e.completions))
	copy(out, e.completions)
	return out
}

// Clock returns the current simulated time in seconds.
func (e *Engine) Clock() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

// Idle reports whether the engine has no queued or running cloudlets.
func (e *Engine) Idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.waiting) > 0 {
		return false
	}
	for _, hv := range e.vms {
		if len(hv.running) > 0 {
			return false
		}
	}
	return true
}

// Sample reports the live busy fraction of a VM: the PE demand of its
// running cloudlets over its own PE count, capped at 1. It implements the
// controller's metric-backed sampler. Unknown VMs (including VMs whose
// removal is in flight) read as unavailable.
func (e *Engine) Sample(ctx context.Context, vmID int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.NewSampleError(vmID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	hv, ok := e.vms[vmID]
	if !ok {
		return 0, errors.NewSampleError(vmID, nil)
	}

	demand := 0
	for _, c := range hv.running {
		demand += c.PEs
	}
	return math.Min(1, float64(demand)/float64(hv.vm.PEs)), nil
}

// Advance moves simulated time forward by dt seconds, dispatching queued
// cloudlets and completing finished ones. Completions within the interval
// are processed in event order, so freed capacity is reused immediately.
func (e *Engine) Advance(dt float64) {
	e.mu.Lock()

	var completed []job.Completion
	remaining := dt
	e.dispatch()

	for remaining > 1e-12 {
		step := remaining
		// Earliest finish among running cloudlets at current rates.
		for _, id := range e.vmOrder {
			hv := e.vms[id]
			rate := e.perCloudletRate(hv)
			if rate <= 0 {
				continue
			}
			for _, c := range hv.running {
				if eta := c.Remaining / rate; eta < step {
					step = eta
				}
			}
		}

		e.clock += step
		remaining -= step

		finishedAny := false
		for _, id := range e.vmOrder {
			hv := e.vms[id]
			rate := e.perCloudletRate(hv)
			if rate <= 0 {
				continue
			}
			var still []*job.Cloudlet
			for _, c := range hv.running {
				c.Remaining -= rate * step
				if c.Remaining <= 1e-9 {
					if err := c.Finish(e.clock, true); err != nil {
						continue
					}
					rec := job.Completion{
						JobID:      c.ID,
						VMID:       hv.vm.ID,
						Status:     c.Status,
						StartTime:  c.StartTime,
						FinishTime: c.FinishTime,
					}
					e.completions = append(e.completions, rec)
					completed = append(completed, rec)
					finishedAny = true
				} else {
					still = append(still, c)
				}
			}
			hv.running = still
		}

		if finishedAny {
			e.dispatch()
		}
	}

	e.mu.Unlock()

	// Publish outside the lock: handlers may call back into the engine.
	if e.bus != nil {
		for _, rec := range completed {
			e.bus.Publish(event.NewJobCompletedEvent(
				rec.JobID, rec.VMID, rec.Status == job.StatusSuccess, rec.StartTime, rec.FinishTime))
		}
	}
}

// dispatch assigns waiting cloudlets to the least-loaded VM. Ties go to
// the lowest VM ID so runs are reproducible. Callers hold e.mu.
func (e *Engine) dispatch() {
	if len(e.vmOrder) == 0 {
		return
	}

	var undispatched []*job.Cloudlet
	for _, c := range e.waiting {
		target := -1
		best := math.MaxInt
		for _, id := range e.vmOrder {
			hv := e.vms[id]
			if hv.vm.PEs < c.PEs {
				continue
			}
			if n := len(hv.running); n < best {
				best = n
				target = id
			}
		}
		if target < 0 {
			undispatched = append(undispatched, c)
			continue
		}
		if err := c.Start(target, e.clock); err != nil {
			continue
		}
		e.vms[target].running = append(e.vms[target].running, c)
	}
	e.waiting = undispatched
}

// perCloudletRate returns the MIPS each cloudlet on the VM receives under
// time sharing: total VM capacity split evenly across running cloudlets.
func (e *Engine) perCloudletRate(hv *hostedVM) float64 {
	n := len(hv.running)
	if n == 0 {
		return 0
	}
	return hv.vm.Capacity() / float64(n)
}
