// Package config defines the scalesim configuration, its defaults, and
// validation. Values come from (in increasing precedence) built-in defaults,
// the config file, SCALESIM_* environment variables, and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete scalesim configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Scaling    ScalingConfig    `mapstructure:"scaling"`
	Datacenter DatacenterConfig `mapstructure:"datacenter"`
	VM         VMConfig         `mapstructure:"vm"`
	Cloudlet   CloudletConfig   `mapstructure:"cloudlet"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Output     OutputConfig     `mapstructure:"output"`
}

// SimulationConfig controls the shape of a run.
type SimulationConfig struct {
	// Cycles is the number of control cycles to execute.
	Cycles int `mapstructure:"cycles"`
	// CycleSeconds is the simulated time advanced before each cycle.
	CycleSeconds float64 `mapstructure:"cycle_seconds"`
	// InitialVMs is the pool size at start.
	InitialVMs int `mapstructure:"initial_vms"`
	// Cloudlets is the number of cloudlets submitted at start.
	Cloudlets int `mapstructure:"cloudlets"`
	// Sampler selects the utilization source: "engine" reads live busy
	// fractions from the simulation, "random" draws uniform readings.
	Sampler string `mapstructure:"sampler"`
	// Seed seeds the random sampler. 0 means derive from the clock.
	Seed int64 `mapstructure:"seed"`
}

// ScalingConfig controls the autoscaling policy and controller.
type ScalingConfig struct {
	// UpperThreshold is the utilization above which a VM triggers a scale-up.
	UpperThreshold float64 `mapstructure:"upper_threshold"`
	// LowerThreshold is the utilization below which a VM triggers a scale-down.
	LowerThreshold float64 `mapstructure:"lower_threshold"`
	// MinPoolSize is the floor the pool never shrinks below.
	MinPoolSize int `mapstructure:"min_pool_size"`
	// SampleTimeoutMs bounds each per-VM utilization sample.
	SampleTimeoutMs int `mapstructure:"sample_timeout_ms"`
}

// DatacenterConfig describes the hosts VMs are placed onto.
type DatacenterConfig struct {
	Hosts         int     `mapstructure:"hosts"`
	HostPEs       int     `mapstructure:"host_pes"`
	HostMIPS      float64 `mapstructure:"host_mips"`
	HostRAMMB     int     `mapstructure:"host_ram_mb"`
	HostBandwidth float64 `mapstructure:"host_bw_mbps"`
	HostStorageGB int     `mapstructure:"host_storage_gb"`
}

// VMConfig is the capacity profile every VM is created from.
type VMConfig struct {
	MIPS          float64 `mapstructure:"mips"`
	PEs           int     `mapstructure:"pes"`
	RAMMB         int     `mapstructure:"ram_mb"`
	BandwidthMbps float64 `mapstructure:"bw_mbps"`
	ImageSizeMB   int     `mapstructure:"image_mb"`
}

// CloudletConfig is the shape of every submitted cloudlet.
type CloudletConfig struct {
	// Length is the cloudlet size in million instructions.
	Length float64 `mapstructure:"length"`
	PEs    int     `mapstructure:"pes"`
	// FileSize and OutputSize are the input and output footprints in bytes.
	FileSize   int `mapstructure:"file_size"`
	OutputSize int `mapstructure:"output_size"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Enabled controls whether logs are written at all.
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Dir is where the log file goes. Empty means stderr.
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls the end-of-run report.
type OutputConfig struct {
	// Format is "table" or "json".
	Format string `mapstructure:"format"`
}

// SampleTimeout returns the per-sample timeout as a time.Duration.
func (s *ScalingConfig) SampleTimeout() time.Duration {
	return time.Duration(s.SampleTimeoutMs) * time.Millisecond
}

// Default returns a Config with the built-in default values.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Cycles:       5,
			CycleSeconds: 10,
			InitialVMs:   2,
			Cloudlets:    10,
			Sampler:      "engine",
			Seed:         0,
		},
		Scaling: ScalingConfig{
			UpperThreshold:  0.8,
			LowerThreshold:  0.2,
			MinPoolSize:     1,
			SampleTimeoutMs: 2000,
		},
		Datacenter: DatacenterConfig{
			Hosts:         1,
			HostPEs:       8,
			HostMIPS:      1000,
			HostRAMMB:     16384,
			HostBandwidth: 10000,
			HostStorageGB: 1000,
		},
		VM: VMConfig{
			MIPS:          1000,
			PEs:           2,
			RAMMB:         512,
			BandwidthMbps: 1000,
			ImageSizeMB:   10000,
		},
		Cloudlet: CloudletConfig{
			Length:     10000,
			PEs:        1,
			FileSize:   300,
			OutputSize: 300,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	// Simulation defaults
	viper.SetDefault("simulation.cycles", defaults.Simulation.Cycles)
	viper.SetDefault("simulation.cycle_seconds", defaults.Simulation.CycleSeconds)
	viper.SetDefault("simulation.initial_vms", defaults.Simulation.InitialVMs)
	viper.SetDefault("simulation.cloudlets", defaults.Simulation.Cloudlets)
	viper.SetDefault("simulation.sampler", defaults.Simulation.Sampler)
	viper.SetDefault("simulation.seed", defaults.Simulation.Seed)

	// Scaling defaults
	viper.SetDefault("scaling.upper_threshold", defaults.Scaling.UpperThreshold)
	viper.SetDefault("scaling.lower_threshold", defaults.Scaling.LowerThreshold)
	viper.SetDefault("scaling.min_pool_size", defaults.Scaling.MinPoolSize)
	viper.SetDefault("scaling.sample_timeout_ms", defaults.Scaling.SampleTimeoutMs)

	// Datacenter defaults
	viper.SetDefault("datacenter.hosts", defaults.Datacenter.Hosts)
	viper.SetDefault("datacenter.host_pes", defaults.Datacenter.HostPEs)
	viper.SetDefault("datacenter.host_mips", defaults.Datacenter.HostMIPS)
	viper.SetDefault("datacenter.host_ram_mb", defaults.Datacenter.HostRAMMB)
	viper.SetDefault("datacenter.host_bw_mbps", defaults.Datacenter.HostBandwidth)
	viper.SetDefault("datacenter.host_storage_gb", defaults.Datacenter.HostStorageGB)

	// VM defaults
	viper.SetDefault("vm.mips", defaults.VM.MIPS)
	viper.SetDefault("vm.pes", defaults.VM.PEs)
	viper.SetDefault("vm.ram_mb", defaults.VM.RAMMB)
	viper.SetDefault("vm.bw_mbps", defaults.VM.BandwidthMbps)
	viper.SetDefault("vm.image_mb", defaults.VM.ImageSizeMB)

	// Cloudlet defaults
	viper.SetDefault("cloudlet.length", defaults.Cloudlet.Length)
	viper.SetDefault("cloudlet.pes", defaults.Cloudlet.PEs)
	viper.SetDefault("cloudlet.file_size", defaults.Cloudlet.FileSize)
	viper.SetDefault("cloudlet.output_size", defaults.Cloudlet.OutputSize)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
}

// Load reads the configuration from viper into a Config struct and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scalesim")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scalesim"
	}
	return filepath.Join(home, ".config", "scalesim")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
