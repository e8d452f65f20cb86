package cmd

import (
	"fmt"
	"os"

	"github.com/hollenbach/scalesim/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create scalesim configuration",
	Long: `View or create scalesim configuration.

Without arguments, displays the current configuration.
Use subcommands to create a config file or locate it.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/scalesim/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("simulation:")
	fmt.Printf("  cycles: %d\n", cfg.Simulation.Cycles)
	fmt.Printf("  cycle_seconds: %g\n", cfg.Simulation.CycleSeconds)
	fmt.Printf("  initial_vms: %d\n", cfg.Simulation.InitialVMs)
	fmt.Printf("  cloudlets: %d\n", cfg.Simulation.Cloudlets)
	fmt.Printf("  sampler: %s\n", cfg.Simulation.Sampler)
	fmt.Printf("  seed: %d\n", cfg.Simulation.Seed)

	fmt.Println("scaling:")
	fmt.Printf("  upper_threshold: %g\n", cfg.Scaling.UpperThreshold)
	fmt.Printf("  lower_threshold: %g\n", cfg.Scaling.LowerThreshold)
	fmt.Printf("  min_pool_size: %d\n", cfg.Scaling.MinPoolSize)
	fmt.Printf("  sample_timeout_ms: %d\n", cfg.Scaling.SampleTimeoutMs)

	fmt.Println("datacenter:")
	fmt.Printf("  hosts: %d\n", cfg.Datacenter.Hosts)
	fmt.Printf("  host_pes: %d\n", cfg.Datacenter.HostPEs)
	fmt.Printf("  host_mips: %g\n", cfg.Datacenter.HostMIPS)
	fmt.Printf("  host_ram_mb: %d\n", cfg.Datacenter.HostRAMMB)

	fmt.Println("vm:")
	fmt.Printf("  mips: %g\n", cfg.VM.MIPS)
	fmt.Printf("  pes: %d\n", cfg.VM.PEs)
	fmt.Printf("  ram_mb: %d\n", cfg.VM.RAMMB)

	fmt.Println("cloudlet:")
	fmt.Printf("  length: %g\n", cfg.Cloudlet.Length)
	fmt.Printf("  pes: %d\n", cfg.Cloudlet.PEs)

	fmt.Println("output:")
	fmt.Printf("  format: %s\n", cfg.Output.Format)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configContent := `# Scalesim configuration

simulation:
  # Number of autoscaling control cycles to run
  cycles: 5
  # Simulated seconds advanced before each cycle
  cycle_seconds: 10
  # Pool size at start
  initial_vms: 2
  # Cloudlets submitted at start
  cloudlets: 10
  # Utilization source: "engine" (live busy fractions) or "random"
  sampler: engine
  # Seed for the random sampler (0 = derive from the clock)
  seed: 0

scaling:
  # Scale up when a VM's utilization exceeds this fraction
  upper_threshold: 0.8
  # Scale down when a VM's utilization falls below this fraction
  lower_threshold: 0.2
  # The pool never shrinks below this many VMs
  min_pool_size: 1
  # Per-VM sample timeout in milliseconds
  sample_timeout_ms: 2000

datacenter:
  hosts: 1
  host_pes: 8
  host_mips: 1000
  host_ram_mb: 16384
  host_bw_mbps: 10000
  host_storage_gb: 1000

vm:
  mips: 1000
  pes: 2
  ram_mb: 512
  bw_mbps: 1000
  image_mb: 10000

cloudlet:
  # Work per cloudlet in million instructions
  length: 10000
  pes: 1
  file_size: 300
  output_size: 300

logging:
  enabled: true
  # debug, info, warn, error
  level: info
  # Log directory. Empty writes to stderr
  dir: ""

output:
  # table or json
  format: table
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
