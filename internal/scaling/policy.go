package scaling

import (
	"fmt"

	"github.com/hollenbach/scalesim/internal/vm"
)

// Default policy values.
const (
	DefaultUpperThreshold = 0.8
	DefaultLowerThreshold = 0.2
	defaultMinPoolSize    = 1
)

// Option configures a Policy.
type Option func(*Policy)

// WithUpperThreshold sets the utilization above which a VM triggers a
// scale-up.
func WithUpperThreshold(u float64) Option {
	return func(p *Policy) { p.upper = u }
}

// WithLowerThreshold sets the utilization below which a VM becomes a
// scale-down candidate.
func WithLowerThreshold(l float64) Option {
	return func(p *Policy) { p.lower = l }
}

// WithMinPoolSize sets the pool floor. No scale-down is ever emitted that
// would shrink the pool below this size.
func WithMinPoolSize(n int) Option {
	return func(p *Policy) { p.minPoolSize = n }
}

// Policy defines the rules for elastic scaling decisions. It is a pure
// decision function over (snapshot, readings): it holds no mutable state
// and is safe for concurrent use.
type Policy struct {
	upper       float64
	lower       float64
	minPoolSize int
}

// NewPolicy creates a Policy with the given options.
// Unset options use defaults.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		upper:       DefaultUpperThreshold,
		lower:       DefaultLowerThreshold,
		minPoolSize: defaultMinPoolSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UpperThreshold returns the configured scale-up threshold.
func (p *Policy) UpperThreshold() float64 { return p.upper }

// LowerThreshold returns the configured scale-down threshold.
func (p *Policy) LowerThreshold() float64 { return p.lower }

// MinPoolSize returns the configured pool floor.
func (p *Policy) MinPoolSize() int { return p.minPoolSize }

// Evaluate inspects the pool snapshot and the freshly sampled utilization
// readings and returns the cycle's scaling decisions, one per evaluated VM
// in snapshot order.
//
// For each VM:
//   - reading > upper: emit a scale-up cloning that VM's capacity profile.
//     Scale-ups are unlimited; every over-threshold VM gets one.
//   - reading < lower, and the pool held more than minPoolSize VMs at the
//     start of the cycle: emit a scale-down for that VM and stop evaluating.
//     At most one scale-down per cycle — the anti-flap rule. The size check
//     uses the snapshot length, never a mid-loop count.
//   - otherwise: emit a no-op. A scale-down candidate blocked by the pool
//     floor is an explicit no-op, not an error.
//
// VMs with no reading (sample unavailable this cycle) degrade to a no-op.
func (p *Policy) Evaluate(snapshot []vm.VM, readings map[int]float64) []Decision {
	// Pool size as of cycle start; scale-downs later in the loop must not
	// see a decremented count.
	startSize := len(snapshot)

	decisions := make([]Decision, 0, len(snapshot))
	for _, v := range snapshot {
		reading, ok := readings[v.ID]
		if !ok {
			decisions = append(decisions, Decision{
				Action: ActionNone,
				VMID:   v.ID,
				Reason: "no utilization sample this cycle",
			})
			continue
		}

		switch {
		case reading > p.upper:
			decisions = append(decisions, Decision{
				Action:      ActionScaleUp,
				VMID:        v.ID,
				Template:    v.Profile,
				Utilization: reading,
				Reason:      fmt.Sprintf("utilization %.2f above upper threshold %.2f", reading, p.upper),
			})

		case reading < p.lower && startSize > p.minPoolSize:
			decisions = append(decisions, Decision{
				Action:      ActionScaleDown,
				VMID:        v.ID,
				Utilization: reading,
				Reason:      fmt.Sprintf("utilization %.2f below lower threshold %.2f", reading, p.lower),
			})
			// Anti-flap rule: one scale-down per cycle, and evaluation
			// stops at the first one.
			return decisions

		case reading < p.lower:
			decisions = append(decisions, Decision{
				Action:      ActionNone,
				VMID:        v.ID,
				Utilization: reading,
				Reason:      fmt.Sprintf("pool at floor of %d, scale-down suppressed", p.minPoolSize),
			})

		default:
			decisions = append(decisions, Decision{
				Action:      ActionNone,
				VMID:        v.ID,
				Utilization: reading,
				Reason:      "utilization within band",
			})
		}
	}
	return decisions
}
