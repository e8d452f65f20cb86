// Package event defines event types for decoupling components in scalesim.
// These events enable communication between the scaling controller, the
// simulation engine, and reporting without requiring direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "vm.added", "cycle.completed")
	EventType() string

	// Timestamp returns when the event occurred (wall clock, not
	// simulated time).
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// VM Lifecycle Events
// -----------------------------------------------------------------------------

// VMAddedEvent is emitted when the controller adds a VM to the pool and the
// engine accepts it.
type VMAddedEvent struct {
	baseEvent
	VMID     int     // Identity of the new VM
	MIPS     float64 // Processing rate of the new VM
	PEs      int     // Core count of the new VM
	SourceVM int     // VM whose utilization triggered the scale-up
}

// NewVMAddedEvent creates a VMAddedEvent.
func NewVMAddedEvent(vmID int, mips float64, pes, sourceVM int) VMAddedEvent {
	return VMAddedEvent{
		baseEvent: newBaseEvent("vm.added"),
		VMID:      vmID,
		MIPS:      mips,
		PEs:       pes,
		SourceVM:  sourceVM,
	}
}

// VMRemovedEvent is emitted after the engine acknowledged a VM removal and
// the pool record was dropped.
type VMRemovedEvent struct {
	baseEvent
	VMID   int    // Identity of the removed VM
	Reason string // Why the VM was removed (e.g., "below lower threshold")
}

// NewVMRemovedEvent creates a VMRemovedEvent.
func NewVMRemovedEvent(vmID int, reason string) VMRemovedEvent {
	return VMRemovedEvent{
		baseEvent: newBaseEvent("vm.removed"),
		VMID:      vmID,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Control Cycle Events
// -----------------------------------------------------------------------------

// CycleCompletedEvent is emitted at the end of every scaling cycle, after
// the apply phase finished.
type CycleCompletedEvent struct {
	baseEvent
	Cycle      int // Cycle number, starting at 1
	PoolSize   int // Pool size after the apply phase
	ScaleUps   int // Scale-ups applied this cycle
	ScaleDowns int // Scale-downs applied this cycle
}

// NewCycleCompletedEvent creates a CycleCompletedEvent.
func NewCycleCompletedEvent(cycle, poolSize, scaleUps, scaleDowns int) CycleCompletedEvent {
	return CycleCompletedEvent{
		baseEvent:  newBaseEvent("cycle.completed"),
		Cycle:      cycle,
		PoolSize:   poolSize,
		ScaleUps:   scaleUps,
		ScaleDowns: scaleDowns,
	}
}

// -----------------------------------------------------------------------------
// Job Events
// -----------------------------------------------------------------------------

// JobCompletedEvent is emitted by the simulation engine when a cloudlet
// finishes executing, successfully or not.
type JobCompletedEvent struct {
	baseEvent
	JobID   int     // Identity of the completed cloudlet
	VMID    int     // VM the cloudlet ran on
	Success bool    // Whether the cloudlet succeeded
	Start   float64 // Simulated start time
	Finish  float64 // Simulated finish time
}

// NewJobCompletedEvent creates a JobCompletedEvent.
func NewJobCompletedEvent(jobID, vmID int, success bool, start, finish float64) JobCompletedEvent {
	return JobCompletedEvent{
		baseEvent: newBaseEvent("job.completed"),
		JobID:     jobID,
		VMID:      vmID,
		Success:   success,
		Start:     start,
		Finish:    finish,
	}
}
