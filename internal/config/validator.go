package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "scaling.upper_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidSamplers returns the list of valid utilization samplers.
func ValidSamplers() []string {
	return []string{"engine", "random"}
}

// ValidOutputFormats returns the list of valid report output formats.
func ValidOutputFormats() []string {
	return []string{"table", "json"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSimulation()...)
	errors = append(errors, c.validateScaling()...)
	errors = append(errors, c.validateDatacenter()...)
	errors = append(errors, c.validateVM()...)
	errors = append(errors, c.validateCloudlet()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

func (c *Config) validateSimulation() []ValidationError {
	var errors []ValidationError

	if c.Simulation.Cycles < 0 {
		errors = append(errors, ValidationError{
			Field:   "simulation.cycles",
			Value:   c.Simulation.Cycles,
			Message: "must be non-negative",
		})
	}
	if c.Simulation.CycleSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "simulation.cycle_seconds",
			Value:   c.Simulation.CycleSeconds,
			Message: "must be positive",
		})
	}
	if c.Simulation.InitialVMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "simulation.initial_vms",
			Value:   c.Simulation.InitialVMs,
			Message: "must be at least 1",
		})
	}
	if c.Simulation.Cloudlets < 0 {
		errors = append(errors, ValidationError{
			Field:   "simulation.cloudlets",
			Value:   c.Simulation.Cloudlets,
			Message: "must be non-negative",
		})
	}
	if c.Simulation.Sampler != "" && !slices.Contains(ValidSamplers(), c.Simulation.Sampler) {
		errors = append(errors, ValidationError{
			Field:   "simulation.sampler",
			Value:   c.Simulation.Sampler,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSamplers(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateScaling() []ValidationError {
	var errors []ValidationError

	if c.Scaling.UpperThreshold <= 0 || c.Scaling.UpperThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.upper_threshold",
			Value:   c.Scaling.UpperThreshold,
			Message: "must be in (0, 1]",
		})
	}
	if c.Scaling.LowerThreshold < 0 || c.Scaling.LowerThreshold >= 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.lower_threshold",
			Value:   c.Scaling.LowerThreshold,
			Message: "must be in [0, 1)",
		})
	}
	if c.Scaling.LowerThreshold >= c.Scaling.UpperThreshold {
		errors = append(errors, ValidationError{
			Field:   "scaling.lower_threshold",
			Value:   c.Scaling.LowerThreshold,
			Message: "must be below scaling.upper_threshold",
		})
	}
	if c.Scaling.MinPoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.min_pool_size",
			Value:   c.Scaling.MinPoolSize,
			Message: "must be at least 1",
		})
	}
	if c.Scaling.SampleTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scaling.sample_timeout_ms",
			Value:   c.Scaling.SampleTimeoutMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateDatacenter() []ValidationError {
	var errors []ValidationError

	if c.Datacenter.Hosts < 1 {
		errors = append(errors, ValidationError{
			Field:   "datacenter.hosts",
			Value:   c.Datacenter.Hosts,
			Message: "must be at least 1",
		})
	}
	if c.Datacenter.HostPEs < 1 {
		errors = append(errors, ValidationError{
			Field:   "datacenter.host_pes",
			Value:   c.Datacenter.HostPEs,
			Message: "must be at least 1",
		})
	}
	if c.Datacenter.HostMIPS <= 0 {
		errors = append(errors, ValidationError{
			Field:   "datacenter.host_mips",
			Value:   c.Datacenter.HostMIPS,
			Message: "must be positive",
		})
	}
	if c.Datacenter.HostRAMMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "datacenter.host_ram_mb",
			Value:   c.Datacenter.HostRAMMB,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateVM() []ValidationError {
	var errors []ValidationError

	if c.VM.MIPS <= 0 {
		errors = append(errors, ValidationError{
			Field:   "vm.mips",
			Value:   c.VM.MIPS,
			Message: "must be positive",
		})
	}
	if c.VM.PEs < 1 {
		errors = append(errors, ValidationError{
			Field:   "vm.pes",
			Value:   c.VM.PEs,
			Message: "must be at least 1",
		})
	}
	if c.VM.RAMMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "vm.ram_mb",
			Value:   c.VM.RAMMB,
			Message: "must be positive",
		})
	}
	if c.VM.PEs > c.Datacenter.HostPEs {
		errors = append(errors, ValidationError{
			Field:   "vm.pes",
			Value:   c.VM.PEs,
			Message: fmt.Sprintf("must not exceed datacenter.host_pes (%d)", c.Datacenter.HostPEs),
		})
	}

	return errors
}

func (c *Config) validateCloudlet() []ValidationError {
	var errors []ValidationError

	if c.Cloudlet.Length <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cloudlet.length",
			Value:   c.Cloudlet.Length,
			Message: "must be positive",
		})
	}
	if c.Cloudlet.PEs < 1 {
		errors = append(errors, ValidationError{
			Field:   "cloudlet.pes",
			Value:   c.Cloudlet.PEs,
			Message: "must be at least 1",
		})
	}
	if c.Cloudlet.FileSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "cloudlet.file_size",
			Value:   c.Cloudlet.FileSize,
			Message: "must be non-negative",
		})
	}
	if c.Cloudlet.OutputSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "cloudlet.output_size",
			Value:   c.Cloudlet.OutputSize,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if c.Output.Format != "" && !slices.Contains(ValidOutputFormats(), c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}

	return errors
}
