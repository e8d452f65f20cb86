// Package scaling provides utilization-threshold-based elastic scaling
// decisions for the VM pool.
//
// Each control cycle, the controller samples per-VM utilization and applies
// a configurable policy to the readings. The policy is a pure function: it
// holds no mutable state and its output depends only on the snapshot and
// the readings, which keeps every decision reproducible in tests.
//
// The core types are:
//
//   - [Policy]: Defines scaling rules (utilization thresholds, pool floor)
//   - [Decision]: The output of policy evaluation — scale up, scale down, or no-op
//
// # Usage
//
//	policy := scaling.NewPolicy(
//	    scaling.WithUpperThreshold(0.8),
//	    scaling.WithLowerThreshold(0.2),
//	    scaling.WithMinPoolSize(1),
//	)
//
//	decisions := policy.Evaluate(pool.Snapshot(), readings)
//	for _, d := range decisions {
//	    log.Printf("Scaling: %s vm=%d reason=%s", d.Action, d.VMID, d.Reason)
//	}
//
// # Asymmetry
//
// Scale-ups are unlimited: every VM over the upper threshold spawns one new
// VM cloned from its capacity profile. Scale-downs are capped at one per
// cycle (the anti-flap rule): removing more than one VM on the strength of
// a single noisy sample risks collapsing the pool. Under-provisioning is an
// availability risk, over-provisioning only a cost risk, so the policy
// reacts harder in the up direction.
package scaling
