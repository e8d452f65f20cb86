package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hollenbach/scalesim/internal/config"
	"github.com/hollenbach/scalesim/internal/controller"
	"github.com/hollenbach/scalesim/internal/engine"
	"github.com/hollenbach/scalesim/internal/event"
	"github.com/hollenbach/scalesim/internal/job"
	"github.com/hollenbach/scalesim/internal/logging"
	"github.com/hollenbach/scalesim/internal/report"
	"github.com/hollenbach/scalesim/internal/sampler"
	"github.com/hollenbach/scalesim/internal/scaling"
	"github.com/hollenbach/scalesim/internal/vm"
)

// maxDrainIntervals caps how many extra intervals the engine runs after the
// last control cycle to let in-flight cloudlets finish.
const maxDrainIntervals = 1000

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the autoscaling simulation",
	Long: `Run starts the simulation: an initial VM pool executes a batch of
cloudlets while the controller samples utilization every cycle and scales
the pool against its thresholds. The run ends with a per-cloudlet report
and a scaling summary.`,
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("cycles", 0, "number of control cycles (overrides config)")
	runCmd.Flags().String("sampler", "", "utilization source: engine or random (overrides config)")
	runCmd.Flags().Int64("seed", 0, "random sampler seed (overrides config)")
	runCmd.Flags().String("output", "", "report format: table or json (overrides config)")
	_ = viper.BindPFlag("simulation.cycles", runCmd.Flags().Lookup("cycles"))
	_ = viper.BindPFlag("simulation.sampler", runCmd.Flags().Lookup("sampler"))
	_ = viper.BindPFlag("simulation.seed", runCmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("output.format", runCmd.Flags().Lookup("output"))
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	runID := uuid.NewString()
	log, err := buildLogger(cfg, runID)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = log.Close() }()

	bus := event.NewBus()
	bus.Subscribe("job.completed", func(e event.Event) {
		jc := e.(event.JobCompletedEvent)
		log.Debug("cloudlet completed",
			"job_id", jc.JobID, "vm_id", jc.VMID, "success", jc.Success,
			"start", jc.Start, "finish", jc.Finish)
	})

	eng := engine.New(
		engine.WithHosts(cfg.Datacenter.Hosts, hostSpecFromConfig(cfg)),
		engine.WithBus(bus),
		engine.WithLogger(log.WithComponent("engine")),
	)

	pool, err := vm.NewPool(cfg.Scaling.MinPoolSize)
	if err != nil {
		return err
	}
	profile := profileFromConfig(cfg)
	for i := 0; i < cfg.Simulation.InitialVMs; i++ {
		pool.Add(profile)
	}
	if err := eng.SubmitVMs(pool.Snapshot()); err != nil {
		return fmt.Errorf("failed to place initial vms: %w", err)
	}

	batch := job.NewSubmitter(
		job.WithBatchSize(cfg.Simulation.Cloudlets),
		job.WithLength(cfg.Cloudlet.Length),
		job.WithPEs(cfg.Cloudlet.PEs),
		job.WithFootprint(int64(cfg.Cloudlet.FileSize), int64(cfg.Cloudlet.OutputSize)),
	).Batch()
	eng.SubmitCloudlets(batch)
	log.Info("simulation prepared",
		"vms", cfg.Simulation.InitialVMs,
		"cloudlets", len(batch),
		"cycles", cfg.Simulation.Cycles)

	smp, err := buildSampler(cfg, eng)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(pool, smp, policyFromConfig(cfg), eng,
		controller.WithLogger(log.WithComponent("controller")),
		controller.WithBus(bus),
		controller.WithSampleTimeout(cfg.Scaling.SampleTimeout()),
		controller.WithBeforeCycle(func(cycle int) {
			eng.Advance(cfg.Simulation.CycleSeconds)
		}),
	)
	if err != nil {
		return err
	}

	// Threshold edits to the config file take effect on the next cycle.
	config.Watch(
		func(next *config.Config) { ctrl.UpdatePolicy(policyFromConfig(next)) },
		func(err error) { log.Warn("ignoring config change", "error", err) },
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, runErr := ctrl.Run(ctx, cfg.Simulation.Cycles)

	// Let in-flight cloudlets finish so the report covers the whole batch.
	for i := 0; i < maxDrainIntervals && !eng.Idle(); i++ {
		eng.Advance(cfg.Simulation.CycleSeconds)
	}

	rep := report.New(stats, eng.CloudletCompletions(), ctrl.History())
	rep.RunID = runID
	if err := emit(cfg, rep); err != nil {
		return err
	}
	return runErr
}

func buildLogger(cfg *config.Config, runID string) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return log.WithRun(runID), nil
}

func buildSampler(cfg *config.Config, eng *engine.Engine) (sampler.Sampler, error) {
	switch cfg.Simulation.Sampler {
	case "", "engine":
		return eng, nil
	case "random":
		seed := cfg.Simulation.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return sampler.NewRandom(seed), nil
	default:
		return nil, fmt.Errorf("unknown sampler %q", cfg.Simulation.Sampler)
	}
}

func hostSpecFromConfig(cfg *config.Config) engine.HostSpec {
	return engine.HostSpec{
		PEs:           cfg.Datacenter.HostPEs,
		MIPS:          cfg.Datacenter.HostMIPS,
		RAMMB:         cfg.Datacenter.HostRAMMB,
		BandwidthMbps: cfg.Datacenter.HostBandwidth,
		StorageGB:     cfg.Datacenter.HostStorageGB,
	}
}

func profileFromConfig(cfg *config.Config) vm.Profile {
	return vm.Profile{
		MIPS:          cfg.VM.MIPS,
		PEs:           cfg.VM.PEs,
		RAMMB:         cfg.VM.RAMMB,
		BandwidthMbps: cfg.VM.BandwidthMbps,
		ImageSizeMB:   cfg.VM.ImageSizeMB,
		Scheduler:     vm.SchedulerTimeShared,
	}
}

func policyFromConfig(cfg *config.Config) *scaling.Policy {
	return scaling.NewPolicy(
		scaling.WithUpperThreshold(cfg.Scaling.UpperThreshold),
		scaling.WithLowerThreshold(cfg.Scaling.LowerThreshold),
		scaling.WithMinPoolSize(cfg.Scaling.MinPoolSize),
	)
}

func emit(cfg *config.Config, rep *report.Report) error {
	if cfg.Output.Format == "json" {
		raw, err := rep.JSON()
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(rep.Render())
	return nil
}
