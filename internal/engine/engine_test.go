package engine

import (
	"context"
	"math"
	"testing"

	"github.com/hollenbach/scalesim/internal/errors"
	"github.com/hollenbach/scalesim/internal/event"
	"github.com/hollenbach/scalesim/internal/job"
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

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestEngine_SubmitVMs(t *testing.T) {
	t.Run("places onto default host", func(t *testing.T) {
		e := New()
		err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}, {ID: 1, Profile: testProfile}})
		if err != nil {
			t.Fatalf("SubmitVMs error = %v", err)
		}
	})

	t.Run("rejects when capacity exhausted", func(t *testing.T) {
		// Host with 2 PEs fits exactly one 2-PE VM.
		e := New(WithHosts(1, HostSpec{PEs: 2, MIPS: 1000, RAMMB: 16384, BandwidthMbps: 10000, StorageGB: 1000}))

		if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
			t.Fatalf("first SubmitVMs error = %v", err)
		}
		err := e.SubmitVMs([]vm.VM{{ID: 1, Profile: testProfile}})
		if !errors.Is(err, errors.ErrEngineSubmit) {
			t.Errorf("second SubmitVMs error = %v, want ErrEngineSubmit", err)
		}
	})

	t.Run("rejects when RAM exhausted", func(t *testing.T) {
		e := New(WithHosts(1, HostSpec{PEs: 8, MIPS: 1000, RAMMB: 600, BandwidthMbps: 10000, StorageGB: 1000}))

		if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
			t.Fatalf("first SubmitVMs error = %v", err)
		}
		err := e.SubmitVMs([]vm.VM{{ID: 1, Profile: testProfile}})
		if !errors.Is(err, errors.ErrEngineSubmit) {
			t.Errorf("second SubmitVMs error = %v, want ErrEngineSubmit", err)
		}
	})
}

func TestEngine_SingleCloudletTiming(t *testing.T) {
	e := New()
	if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
		t.Fatalf("SubmitVMs error = %v", err)
	}

	// 10000 MI on a 2x1000 MIPS VM: finishes after 5 simulated seconds.
	c := &job.Cloudlet{ID: 0, Length: 10000, PEs: 1, VMID: -1}
	e.SubmitCloudlets([]*job.Cloudlet{c})

	e.Advance(4)
	if c.Status != job.StatusRunning {
		t.Fatalf("status after 4s = %v, want RUNNING", c.Status)
	}

	e.Advance(2)
	if c.Status != job.StatusSuccess {
		t.Fatalf("status after 6s = %v, want SUCCESS", c.Status)
	}

	got := e.CloudletCompletions()
	if len(got) != 1 {
		t.Fatalf("completions = %d, want 1", len(got))
	}
	rec := got[0]
	if rec.JobID != 0 || rec.VMID != 0 {
		t.Errorf("completion = %+v, want job 0 on vm 0", rec)
	}
	if !almostEqual(rec.StartTime, 0) || !almostEqual(rec.FinishTime, 5) {
		t.Errorf("times = %v..%v, want 0..5", rec.StartTime, rec.FinishTime)
	}
}

func TestEngine_TimeSharedSlowdown(t *testing.T) {
	e := New()
	if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
		t.Fatalf("SubmitVMs error = %v", err)
	}

	// Two 10000 MI cloudlets share 2000 MIPS: 1000 MIPS each, 10 seconds.
	a := &job.Cloudlet{ID: 0, Length: 10000, PEs: 1, VMID: -1}
	b := &job.Cloudlet{ID: 1, Length: 10000, PEs: 1, VMID: -1}
	e.SubmitCloudlets([]*job.Cloudlet{a, b})

	e.Advance(10)

	for _, c := range []*job.Cloudlet{a, b} {
		if c.Status != job.StatusSuccess {
			t.Errorf("cloudlet %d status = %v, want SUCCESS", c.ID, c.Status)
		}
		if !almostEqual(c.FinishTime, 10) {
			t.Errorf("cloudlet %d finish = %v, want 10", c.ID, c.FinishTime)
		}
	}
}

func TestEngine_CompletionFreesCapacityMidInterval(t *testing.T) {
	e := New()
	if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
		t.Fatalf("SubmitVMs error = %v", err)
	}

	// A short and a long cloudlet: both share capacity until the short one
	// finishes, then the long one speeds up within the same Advance call.
	short := &job.Cloudlet{ID: 0, Length: 2000, PEs: 1, VMID: -1}
	long := &job.Cloudlet{ID: 1, Length: 10000, PEs: 1, VMID: -1}
	e.SubmitCloudlets([]*job.Cloudlet{short, long})

	// Shared phase: 1000 MIPS each. Short finishes at t=2 with long at
	// 8000 MI remaining; long then runs at 2000 MIPS, finishing at t=6.
	e.Advance(20)

	if !almostEqual(short.FinishTime, 2) {
		t.Errorf("short finish = %v, want 2", short.FinishTime)
	}
	if !almostEqual(long.FinishTime, 6) {
		t.Errorf("long finish = %v, want 6", long.FinishTime)
	}
}

func TestEngine_DispatchBalancesAcrossVMs(t *testing.T) {
	e := New()
	if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}, {ID: 1, Profile: testProfile}}); err != nil {
		t.Fatalf("SubmitVMs error = %v", err)
	}

	batch := job.NewSubmitter().Batch() // 10 cloudlets
	e.SubmitCloudlets(batch)
	e.Advance(0.001)

	onVM := map[int]int{}
	for _, c := range batch {
		if c.Status != job.StatusRunning {
			t.Fatalf("cloudlet %d status = %v, want RUNNING", c.ID, c.Status)
		}
		onVM[c.VMID]++
	}
	if onVM[0] != 5 || onVM[1] != 5 {
		t.Errorf("dispatch = %v, want 5 cloudlets per VM", onVM)
	}
}

func TestEngine_Sample(t *testing.T) {
	e := New()
	ctx := context.Background()
	if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
		t.Fatalf("SubmitVMs error = %v", err)
	}

	t.Run("idle VM reads zero", func(t *testing.T) {
		got, err := e.Sample(ctx, 0)
		if err != nil || got != 0 {
			t.Errorf("Sample = %v, %v, want 0, nil", got, err)
		}
	})

	t.Run("busy VM reads demand over capacity", func(t *testing.T) {
		c := &job.Cloudlet{ID: 0, Length: 1e9, PEs: 1, VMID: -1}
		e.SubmitCloudlets([]*job.Cloudlet{c})
		e.Advance(0.001)

		got, err := e.Sample(ctx, 0)
		if err != nil || !almostEqual(got, 0.5) {
			t.Errorf("Sample = %v, %v, want 0.5, nil", got, err)
		}
	})

	t.Run("overloaded VM caps at one", func(t *testing.T) {
		more := []*job.Cloudlet{
			{ID: 1, Length: 1e9, PEs: 1, VMID: -1},
			{ID: 2, Length: 1e9, PEs: 1, VMID: -1},
			{ID: 3, Length: 1e9, PEs: 1, VMID: -1},
		}
		e.SubmitCloudlets(more)
		e.Advance(0.001)

		got, err := e.Sample(ctx, 0)
		if err != nil || got != 1 {
			t.Errorf("Sample = %v, %v, want 1, nil", got, err)
		}
	})

	t.Run("unknown VM is unavailable", func(t *testing.T) {
		_, err := e.Sample(ctx, 42)
		if !errors.Is(err, errors.ErrSampleUnavailable) {
			t.Errorf("Sample(42) error = %v, want ErrSampleUnavailable", err)
		}
	})
}

func TestEngine_RequestVMRemoval(t *testing.T) {
	t.Run("unknown VM", func(t *testing.T) {
		e := New()
		err := e.RequestVMRemoval(9)
		if !errors.Is(err, errors.ErrVMNotFound) {
			t.Errorf("RequestVMRemoval(9) error = %v, want ErrVMNotFound", err)
		}
	})

	t.Run("drains running cloudlets onto surviving VM", func(t *testing.T) {
		e := New()
		if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}, {ID: 1, Profile: testProfile}}); err != nil {
			t.Fatalf("SubmitVMs error = %v", err)
		}

		a := &job.Cloudlet{ID: 0, Length: 10000, PEs: 1, VMID: -1}
		b := &job.Cloudlet{ID: 1, Length: 10000, PEs: 1, VMID: -1}
		e.SubmitCloudlets([]*job.Cloudlet{a, b})
		e.Advance(1) // one cloudlet per VM, partially executed

		if err := e.RequestVMRemoval(0); err != nil {
			t.Fatalf("RequestVMRemoval error = %v", err)
		}

		e.Advance(100)
		for _, c := range []*job.Cloudlet{a, b} {
			if c.Status != job.StatusSuccess {
				t.Errorf("cloudlet %d status = %v, want SUCCESS", c.ID, c.Status)
			}
			if c.VMID != 1 {
				t.Errorf("cloudlet %d VMID = %d, want 1 (surviving VM)", c.ID, c.VMID)
			}
		}
		if !e.Idle() {
			t.Error("engine should be idle after all cloudlets finished")
		}
	})

	t.Run("refuses to drain the last VM with work in flight", func(t *testing.T) {
		e := New()
		if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
			t.Fatalf("SubmitVMs error = %v", err)
		}
		c := &job.Cloudlet{ID: 0, Length: 4000, PEs: 1, VMID: -1}
		e.SubmitCloudlets([]*job.Cloudlet{c})
		e.Advance(1)

		err := e.RequestVMRemoval(0)
		if !errors.Is(err, errors.ErrEngineRemoval) {
			t.Fatalf("RequestVMRemoval error = %v, want ErrEngineRemoval", err)
		}

		// Once the work finishes the same removal is acknowledged.
		e.Advance(10)
		if err := e.RequestVMRemoval(0); err != nil {
			t.Errorf("RequestVMRemoval after drain error = %v, want nil", err)
		}
	})

	t.Run("frees host capacity for later submits", func(t *testing.T) {
		e := New(WithHosts(1, HostSpec{PEs: 2, MIPS: 1000, RAMMB: 16384, BandwidthMbps: 10000, StorageGB: 1000}))
		if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
			t.Fatalf("SubmitVMs error = %v", err)
		}
		if err := e.RequestVMRemoval(0); err != nil {
			t.Fatalf("RequestVMRemoval error = %v", err)
		}
		if err := e.SubmitVMs([]vm.VM{{ID: 1, Profile: testProfile}}); err != nil {
			t.Errorf("SubmitVMs after removal error = %v, want nil", err)
		}
	})
}

func TestEngine_PublishesJobCompletedEvents(t *testing.T) {
	bus := event.NewBus()
	var got []event.JobCompletedEvent
	bus.Subscribe("job.completed", func(e event.Event) {
		got = append(got, e.(event.JobCompletedEvent))
	})

	e := New(WithBus(bus))
	if err := e.SubmitVMs([]vm.VM{{ID: 0, Profile: testProfile}}); err != nil {
		t.Fatalf("SubmitVMs error = %v", err)
	}
	e.SubmitCloudlets([]*job.Cloudlet{{ID: 0, Length: 2000, PEs: 1, VMID: -1}})
	e.Advance(5)

	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if got[0].JobID != 0 || got[0].VMID != 0 || !got[0].Success {
		t.Errorf("event = %+v, want successful job 0 on vm 0", got[0])
	}
}

func TestEngine_ClockAdvances(t *testing.T) {
	e := New()
	if e.Clock() != 0 {
		t.Fatalf("initial Clock() = %v, want 0", e.Clock())
	}
	e.Advance(3.5)
	if !almostEqual(e.Clock(), 3.5) {
		t.Errorf("Clock() = %v, want 3.5", e.Clock())
	}
}

func TestEngine_IdleWithQueuedWork(t *testing.T) {
	e := New()
	// No VMs admitted: the cloudlet cannot be dispatched.
	e.SubmitCloudlets([]*job.Cloudlet{{ID: 0, Length: 100, PEs: 1, VMID: -1}})
	e.Advance(10)

	if e.Idle() {
		t.Error("Idle() = true with queued work, want false")
	}
}
