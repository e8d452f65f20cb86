package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hollenbach/scalesim/internal/controller"
	"github.com/hollenbach/scalesim/internal/event"
	"github.com/hollenbach/scalesim/internal/job"
)

func sampleReport() *Report {
	return New(
		controller.Stats{Cycles: 3, ScaleUps: 2, ScaleDowns: 1, FinalPoolSize: 3},
		[]job.Completion{
			{JobID: 0, VMID: 0, Status: job.StatusSuccess, StartTime: 0, FinishTime: 25},
			{JobID: 1, VMID: 2, Status: job.StatusFailed, StartTime: 0, FinishTime: 12.5},
		},
		[]event.CycleCompletedEvent{
			event.NewCycleCompletedEvent(1, 3, 1, 0),
			event.NewCycleCompletedEvent(2, 3, 1, 1),
		},
	)
}

func TestReport_Render(t *testing.T) {
	out := sampleReport().Render()

	for _, want := range []string{
		"CLOUDLET", "STATUS", "VM", "TIME", "START", "FINISH",
		"SUCCESS", "FAILED",
		"Scaling summary",
		"Scale-ups:       2",
		"Scale-downs:     1",
		"Final pool size: 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestReport_RenderOmitsZeroFailureLines(t *testing.T) {
	out := sampleReport().Render()
	for _, absent := range []string{"Failed samples", "Failed submits", "Failed removals"} {
		if strings.Contains(out, absent) {
			t.Errorf("rendered report should omit %q when the count is zero", absent)
		}
	}
}

func TestReport_UniqueRunIDs(t *testing.T) {
	a := New(controller.Stats{}, nil, nil)
	b := New(controller.Stats{}, nil, nil)
	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("run ids %q and %q should be distinct and non-empty", a.RunID, b.RunID)
	}
}

func TestReport_JSON(t *testing.T) {
	raw, err := sampleReport().JSON()
	if err != nil {
		t.Fatalf("JSON error = %v", err)
	}

	var decoded struct {
		RunID string `json:"run_id"`
		Stats struct {
			Cycles   int `json:"Cycles"`
			ScaleUps int `json:"ScaleUps"`
		} `json:"stats"`
		Cloudlets []struct {
			ID     int     `json:"id"`
			Status string  `json:"status"`
			Time   float64 `json:"exec_time"`
		} `json:"cloudlets"`
		Cycles []struct {
			Cycle    int `json:"cycle"`
			PoolSize int `json:"pool_size"`
		} `json:"cycles"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if decoded.RunID == "" {
		t.Error("run_id missing from JSON report")
	}
	if decoded.Stats.Cycles != 3 || decoded.Stats.ScaleUps != 2 {
		t.Errorf("stats = %+v, want 3 cycles and 2 scale-ups", decoded.Stats)
	}
	if len(decoded.Cloudlets) != 2 || decoded.Cloudlets[0].Status != "SUCCESS" || decoded.Cloudlets[0].Time != 25 {
		t.Errorf("cloudlets = %+v, want first SUCCESS with exec time 25", decoded.Cloudlets)
	}
	if len(decoded.Cycles) != 2 || decoded.Cycles[1].Cycle != 2 {
		t.Errorf("cycles = %+v, want two entries ending at cycle 2", decoded.Cycles)
	}
}
