// Package vm defines the virtual machine model and the resource pool that
// owns the live VM set during a simulation run.
package vm

import "fmt"

// Scheduler disciplines a VM can run its cloudlets under. The value is
// opaque to the scaling core; the simulation engine interprets it.
const (
	SchedulerTimeShared  = "time_shared"
	SchedulerSpaceShared = "space_shared"
)

// Profile describes the capacity of a VM independent of its identity.
// Scale-up decisions clone the profile of the VM that breached the upper
// threshold.
type Profile struct {
	// MIPS is the processing rate of each processing element.
	MIPS float64
	// PEs is the number of processing elements (cores).
	PEs int
	// RAMMB is the memory capacity in megabytes.
	RAMMB int
	// BandwidthMbps is the network bandwidth in megabits per second.
	BandwidthMbps float64
	// ImageSizeMB is the disk image size in megabytes.
	ImageSizeMB int
	// Scheduler is the cloudlet scheduling discipline for this VM.
	Scheduler string
}

// Capacity returns the total processing capacity of the profile in MIPS.
func (p Profile) Capacity() float64 {
	return p.MIPS * float64(p.PEs)
}

// VM is a virtual machine instance: a unit of schedulable compute capacity.
// The identity is unique across the pool's entire lifetime; IDs of removed
// VMs are never reused so completion records stay unambiguous.
type VM struct {
	ID int
	Profile
}

// String returns a short human-readable description of the VM.
func (v VM) String() string {
	return fmt.Sprintf("vm-%d (%d x %.0f MIPS)", v.ID, v.PEs, v.MIPS)
}
