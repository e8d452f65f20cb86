// Package job defines the cloudlet model: the unit of batch work executed
// on a VM during a simulation run.
package job

import (
	"fmt"

	"github.com/hollenbach/scalesim/internal/errors"
)

// Status is the lifecycle state of a cloudlet.
type Status int

const (
	// StatusCreated means the cloudlet exists but has not been handed to
	// the engine yet.
	StatusCreated Status = iota
	// StatusQueued means the cloudlet is waiting for a VM.
	StatusQueued
	// StatusRunning means the cloudlet is executing on a VM.
	StatusRunning
	// StatusSuccess means the cloudlet finished successfully. Terminal.
	StatusSuccess
	// StatusFailed means the cloudlet finished with an error. Terminal.
	StatusFailed
)

// String returns the upper-case status name as printed in run reports.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusQueued:
		return "QUEUED"
	case StatusRunning:
		return "RUNNING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is final. Terminal cloudlets are
// immutable.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Cloudlet is a unit of batch work. Created by the Submitter, mutated by
// the simulation engine as it executes, immutable once terminal.
type Cloudlet struct {
	ID int
	// Length is the total work in million instructions.
	Length float64
	// PEs is the number of processing elements the cloudlet requires.
	PEs int
	// FileSize and OutputSize are the I/O footprint in bytes.
	FileSize   int64
	OutputSize int64

	Status Status
	// VMID is the owning VM, assigned at dispatch. -1 until then.
	VMID int

	// Remaining is the work left in million instructions. Maintained by
	// the engine while the cloudlet runs.
	Remaining float64

	// Timestamps in simulated seconds.
	SubmitTime float64
	StartTime  float64
	FinishTime float64
}

// Queue marks the cloudlet as waiting for a VM at the given simulated time.
func (c *Cloudlet) Queue(now float64) error {
	if c.Status.Terminal() {
		return fmt.Errorf("cloudlet %d is terminal: %w", c.ID, errors.ErrInvalidInput)
	}
	c.Status = StatusQueued
	c.SubmitTime = now
	c.VMID = -1
	return nil
}

// Start binds the cloudlet to a VM and begins execution.
func (c *Cloudlet) Start(vmID int, now float64) error {
	if c.Status.Terminal() {
		return fmt.Errorf("cloudlet %d is terminal: %w", c.ID, errors.ErrInvalidInput)
	}
	firstStart := c.Status != StatusRunning && c.Remaining <= 0
	c.Status = StatusRunning
	c.VMID = vmID
	if firstStart {
		// A cloudlet re-dispatched after its VM was drained keeps its
		// progress and its original start time.
		c.StartTime = now
		c.Remaining = c.Length
	}
	return nil
}

// Finish moves the cloudlet to a terminal state at the given simulated time.
// Finishing an already-terminal cloudlet is an error.
func (c *Cloudlet) Finish(now float64, ok bool) error {
	if c.Status.Terminal() {
		return fmt.Errorf("cloudlet %d is terminal: %w", c.ID, errors.ErrInvalidInput)
	}
	if ok {
		c.Status = StatusSuccess
	} else {
		c.Status = StatusFailed
	}
	c.Remaining = 0
	c.FinishTime = now
	return nil
}

// Completion is the record the engine issues when a cloudlet reaches a
// terminal state. Records reference VMs by ID only, so they stay valid
// after the VM has been removed from the pool.
type Completion struct {
	JobID      int
	VMID       int
	Status     Status
	StartTime  float64
	FinishTime float64
}

// ExecTime returns the simulated wall time the cloudlet spent executing.
func (c Completion) ExecTime() float64 {
	return c.FinishTime - c.StartTime
}
