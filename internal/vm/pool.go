package vm

import (
	"sync"

	"github.com/hollenbach/scalesim/internal/errors"
)

// Pool is the authoritative, ordered collection of live VMs under the
// scaling controller's management. Order is creation order and is only
// relied on for deterministic iteration.
//
// All mutation goes through Add and Remove; both are atomic with respect
// to the pool. The pool never shrinks below its minimum size.
type Pool struct {
	mu      sync.Mutex
	vms     []VM
	minSize int
	nextID  int
}

// NewPool creates an empty pool with the given minimum size floor.
// The floor must be at least 1.
func NewPool(minSize int) (*Pool, error) {
	if minSize < 1 {
		return nil, errors.NewPoolError("minimum size must be at least 1", errors.ErrInvalidInput)
	}
	return &Pool{minSize: minSize}, nil
}

// Add allocates a new VM cloned from the template's capacity profile,
// assigns it the next identity and appends it to the pool. The identity
// counter is strictly increasing and never reset, so IDs are never reused
// even after removals.
func (p *Pool) Add(template Profile) VM {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := VM{ID: p.nextID, Profile: template}
	p.nextID++
	p.vms = append(p.vms, v)
	return v
}

// Remove drops the VM with the given identity from the pool.
//
// It fails with ErrVMNotFound if the identity is unknown and with
// ErrPoolFloor if removing would shrink the pool below its minimum size.
// Jobs in flight on the removed VM are the simulation engine's concern;
// the pool does not reach into job state.
func (p *Pool) Remove(vmID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := -1
	for i, v := range p.vms {
		if v.ID == vmID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewPoolError("remove rejected", errors.ErrVMNotFound).WithVM(vmID)
	}
	if len(p.vms) <= p.minSize {
		return errors.NewPoolError("remove rejected", errors.ErrPoolFloor).WithVM(vmID)
	}

	p.vms = append(p.vms[:idx], p.vms[idx+1:]...)
	return nil
}

// Snapshot returns a read-only copy of the live VM set in creation order.
// The copy reflects the pool fully up to and excluding any mutation in
// progress; callers never observe a partial view.
func (p *Pool) Snapshot() []VM {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]VM, len(p.vms))
	copy(out, p.vms)
	return out
}

// Size returns the current number of live VMs.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.vms)
}

// MinSize returns the pool's minimum size floor.
func (p *Pool) MinSize() int {
	return p.minSize
}

// Contains reports whether a VM with the given identity is live.
func (p *Pool) Contains(vmID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, v := range p.vms {
		if v.ID == vmID {
			return true
		}
	}
	return false
}
