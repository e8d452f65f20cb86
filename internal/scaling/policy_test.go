package scaling

import (
	"math/rand"
	"testing"

	"github.com/hollenbach/scalesim/internal/vm"
)

var testProfile = vm.Profile{
	MIPS:          1000,
	PEs:           2,
	RAMMB:         512,
	BandwidthMbps: 1000,
	ImageSizeMB:   10000,
	Scheduler:     vm.SchedulerTimeShared,
}

// snapshotOf builds a pool snapshot with sequential IDs starting at 0.
func snapshotOf(n int) []vm.VM {
	snap := make([]vm.VM, n)
	for i := range snap {
		snap[i] = vm.VM{ID: i, Profile: testProfile}
	}
	return snap
}

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy()
	if p.upper != DefaultUpperThreshold {
		t.Errorf("upper = %v, want %v", p.upper, DefaultUpperThreshold)
	}
	if p.lower != DefaultLowerThreshold {
		t.Errorf("lower = %v, want %v", p.lower, DefaultLowerThreshold)
	}
	if p.minPoolSize != defaultMinPoolSize {
		t.Errorf("minPoolSize = %d, want %d", p.minPoolSize, defaultMinPoolSize)
	}
}

func TestNewPolicy_Options(t *testing.T) {
	p := NewPolicy(
		WithUpperThreshold(0.9),
		WithLowerThreshold(0.3),
		WithMinPoolSize(2),
	)
	if p.UpperThreshold() != 0.9 {
		t.Errorf("UpperThreshold() = %v, want 0.9", p.UpperThreshold())
	}
	if p.LowerThreshold() != 0.3 {
		t.Errorf("LowerThreshold() = %v, want 0.3", p.LowerThreshold())
	}
	if p.MinPoolSize() != 2 {
		t.Errorf("MinPoolSize() = %d, want 2", p.MinPoolSize())
	}
}

func TestPolicy_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		snapshot    []vm.VM
		readings    map[int]float64
		options     []Option
		wantActions []Action
		wantVMs     []int
	}{
		{
			name:        "all within band",
			snapshot:    snapshotOf(2),
			readings:    map[int]float64{0: 0.5, 1: 0.6},
			wantActions: []Action{ActionNone, ActionNone},
			wantVMs:     []int{0, 1},
		},
		{
			name:        "scale up over threshold",
			snapshot:    snapshotOf(2),
			readings:    map[int]float64{0: 0.95, 1: 0.5},
			wantActions: []Action{ActionScaleUp, ActionNone},
			wantVMs:     []int{0, 1},
		},
		{
			name:        "unlimited scale ups",
			snapshot:    snapshotOf(3),
			readings:    map[int]float64{0: 0.9, 1: 0.9, 2: 0.9},
			wantActions: []Action{ActionScaleUp, ActionScaleUp, ActionScaleUp},
			wantVMs:     []int{0, 1, 2},
		},
		{
			name:        "scale down stops evaluation",
			snapshot:    snapshotOf(3),
			readings:    map[int]float64{0: 0.1, 1: 0.05, 2: 0.95},
			wantActions: []Action{ActionScaleDown},
			wantVMs:     []int{0},
		},
		{
			name:        "scale up then scale down in one cycle",
			snapshot:    snapshotOf(2),
			readings:    map[int]float64{0: 0.95, 1: 0.1},
			wantActions: []Action{ActionScaleUp, ActionScaleDown},
			wantVMs:     []int{0, 1},
		},
		{
			name:        "floor suppresses scale down",
			snapshot:    snapshotOf(1),
			readings:    map[int]float64{0: 0.05},
			wantActions: []Action{ActionNone},
			wantVMs:     []int{0},
		},
		{
			name:        "floor of two suppresses scale down",
			snapshot:    snapshotOf(2),
			readings:    map[int]float64{0: 0.05, 1: 0.1},
			options:     []Option{WithMinPoolSize(2)},
			wantActions: []Action{ActionNone, ActionNone},
			wantVMs:     []int{0, 1},
		},
		{
			name:        "missing reading degrades to no-op",
			snapshot:    snapshotOf(2),
			readings:    map[int]float64{1: 0.9},
			wantActions: []Action{ActionNone, ActionScaleUp},
			wantVMs:     []int{0, 1},
		},
		{
			name:        "boundary readings are no-ops",
			snapshot:    snapshotOf(2),
			readings:    map[int]float64{0: 0.8, 1: 0.2},
			wantActions: []Action{ActionNone, ActionNone},
			wantVMs:     []int{0, 1},
		},
		{
			name:        "empty snapshot",
			snapshot:    nil,
			readings:    map[int]float64{},
			wantActions: []Action{},
			wantVMs:     []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.options...)
			got := p.Evaluate(tt.snapshot, tt.readings)

			if len(got) != len(tt.wantActions) {
				t.Fatalf("Evaluate() returned %d decisions, want %d: %+v", len(got), len(tt.wantActions), got)
			}
			for i, d := range got {
				if d.Action != tt.wantActions[i] {
					t.Errorf("decision %d: action = %v, want %v (reason: %s)", i, d.Action, tt.wantActions[i], d.Reason)
				}
				if d.VMID != tt.wantVMs[i] {
					t.Errorf("decision %d: VMID = %d, want %d", i, d.VMID, tt.wantVMs[i])
				}
			}
		})
	}
}

func TestPolicy_Evaluate_ScaleUpTemplateMatchesSource(t *testing.T) {
	big := vm.Profile{MIPS: 2000, PEs: 4, RAMMB: 1024, BandwidthMbps: 1000, ImageSizeMB: 10000, Scheduler: vm.SchedulerTimeShared}
	snapshot := []vm.VM{
		{ID: 0, Profile: testProfile},
		{ID: 1, Profile: big},
	}
	p := NewPolicy()

	got := p.Evaluate(snapshot, map[int]float64{0: 0.5, 1: 0.99})
	if len(got) != 2 {
		t.Fatalf("Evaluate() returned %d decisions, want 2", len(got))
	}
	d := got[1]
	if d.Action != ActionScaleUp {
		t.Fatalf("decision for vm 1: action = %v, want scale_up", d.Action)
	}
	if d.Template != big {
		t.Errorf("Template = %+v, want source VM profile %+v", d.Template, big)
	}
}

// TestPolicy_AtMostOneScaleDown quantifies the anti-flap rule over random
// utilization vectors: no evaluation ever emits more than one scale-down.
func TestPolicy_AtMostOneScaleDown(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	p := NewPolicy()

	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(8)
		snapshot := snapshotOf(n)
		readings := make(map[int]float64, n)
		for _, v := range snapshot {
			readings[v.ID] = rng.Float64()
		}

		downs := 0
		for _, d := range p.Evaluate(snapshot, readings) {
			if d.Action == ActionScaleDown {
				downs++
			}
		}
		if downs > 1 {
			t.Fatalf("trial %d: %d scale-downs in one cycle, want at most 1 (readings: %v)", trial, downs, readings)
		}
	}
}

// TestPolicy_FloorProtection quantifies the floor rule: with the pool at
// its minimum size, an all-idle utilization vector never emits a scale-down.
func TestPolicy_FloorProtection(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 200; trial++ {
		minSize := 1 + rng.Intn(4)
		p := NewPolicy(WithMinPoolSize(minSize))
		snapshot := snapshotOf(minSize)
		readings := make(map[int]float64, minSize)
		for _, v := range snapshot {
			readings[v.ID] = rng.Float64() * p.LowerThreshold() * 0.99
		}

		for _, d := range p.Evaluate(snapshot, readings) {
			if d.Action == ActionScaleDown {
				t.Fatalf("trial %d: scale-down emitted at floor %d (readings: %v)", trial, minSize, readings)
			}
			if d.Action != ActionNone {
				t.Fatalf("trial %d: action = %v, want none", trial, d.Action)
			}
		}
	}
}

// TestPolicy_ScaleUpIndependence checks that an over-threshold VM gets
// exactly one scale-up regardless of the other VMs' readings.
func TestPolicy_ScaleUpIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	p := NewPolicy()

	for trial := 0; trial < 200; trial++ {
		n := 2 + rng.Intn(6)
		snapshot := snapshotOf(n)
		hot := rng.Intn(n)
		readings := make(map[int]float64, n)
		for _, v := range snapshot {
			if v.ID == hot {
				readings[v.ID] = 0.81 + rng.Float64()*0.19
			} else {
				// Keep the rest in the dead band so evaluation never
				// stops before reaching the hot VM.
				readings[v.ID] = 0.3 + rng.Float64()*0.4
			}
		}

		ups := 0
		for _, d := range p.Evaluate(snapshot, readings) {
			if d.Action == ActionScaleUp {
				ups++
				if d.VMID != hot {
					t.Fatalf("trial %d: scale-up for vm %d, want vm %d", trial, d.VMID, hot)
				}
				if d.Template != snapshot[hot].Profile {
					t.Fatalf("trial %d: template does not match hot VM profile", trial)
				}
			}
		}
		if ups != 1 {
			t.Fatalf("trial %d: %d scale-ups, want exactly 1 (readings: %v)", trial, ups, readings)
		}
	}
}

func TestAction_String(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionScaleUp, "scale_up"},
		{ActionScaleDown, "scale_down"},
		{ActionNone, "none"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
