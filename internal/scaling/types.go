package scaling

import "github.com/hollenbach/scalesim/internal/vm"

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp indicates a new VM should be added to the pool.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates a VM should be removed from the pool.
	ActionScaleDown Action = "scale_down"

	// ActionNone indicates no scaling change is needed for the VM.
	ActionNone Action = "none"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Decision is the result of evaluating the scaling policy against one
// sampled VM. Decisions are ephemeral: they live for a single cycle, on
// the way from the policy to the controller.
type Decision struct {
	// Action is the recommended scaling action.
	Action Action

	// VMID is the VM whose reading produced this decision. For a
	// scale-down it is also the removal target.
	VMID int

	// Template is the capacity profile for the new VM on a scale-up.
	// Zero value otherwise.
	Template vm.Profile

	// Utilization is the sampled reading the decision was based on.
	Utilization float64

	// Reason is a human-readable explanation of the decision.
	Reason string
}
