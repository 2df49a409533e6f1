package factory

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/opd-ai/groupcast/interfaces"
	gcnoise "github.com/opd-ai/groupcast/noise"
	"github.com/opd-ai/groupcast/real"
	"github.com/opd-ai/groupcast/testing"
	"github.com/sirupsen/logrus"
)

// Validation constants for configuration bounds checking.
const (
	// MinTimeout is the minimum allowed dial or request timeout in milliseconds.
	MinTimeout = 100
	// MaxTimeout is the maximum allowed dial or request timeout in milliseconds (10 minutes).
	MaxTimeout = 600000
)

// Defaults for the daemon connection.
const (
	DefaultNetwork        = "unix"
	DefaultAddress        = "/run/groupcast/groupd.sock"
	DefaultDialTimeout    = 2000
	DefaultRequestTimeout = 5000
)

// Environment variables read by NewServiceFactory.
const (
	EnvUseSimulation  = "GROUPCAST_USE_SIMULATION"
	EnvNetwork        = "GROUPCAST_NETWORK"
	EnvAddress        = "GROUPCAST_ADDRESS"
	EnvDialTimeout    = "GROUPCAST_DIAL_TIMEOUT"
	EnvRequestTimeout = "GROUPCAST_REQUEST_TIMEOUT"
	EnvDaemonKey      = "GROUPCAST_DAEMON_KEY"
)

// ServiceFactory creates group service implementations based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type ServiceFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.ServiceConfig
}

// TestConfigOption is a functional option for customizing test simulation configuration.
type TestConfigOption func(*interfaces.ServiceConfig)

// NewServiceFactory creates a new factory with default configuration and
// GROUPCAST_* environment overrides applied.
func NewServiceFactory() *ServiceFactory {
	config := DefaultConfig()
	applyEnvironmentOverrides(config)
	logConfigurationInfo("NewServiceFactory", config)

	return &ServiceFactory{defaultConfig: config}
}

// NewServiceFactoryFromFile creates a factory whose defaults are overridden
// first by the TOML file at path and then by the environment.
func NewServiceFactoryFromFile(path string) (*ServiceFactory, error) {
	config := DefaultConfig()
	if err := LoadConfigFile(path, config); err != nil {
		return nil, err
	}
	applyEnvironmentOverrides(config)
	logConfigurationInfo("NewServiceFactoryFromFile", config)

	return &ServiceFactory{defaultConfig: config}, nil
}

// DefaultConfig returns the built-in configuration.
//
// Default Value Rationale:
//   - UseSimulation: false - Production mode by default; simulation must be explicitly enabled
//   - Network/Address: the daemon's local unix socket
//   - DialTimeout: 2000ms - a local daemon either answers quickly or is down
//   - RequestTimeout: 5000ms - leaves room for a membership change on the daemon side
func DefaultConfig() *interfaces.ServiceConfig {
	return &interfaces.ServiceConfig{
		UseSimulation:  false,
		Network:        DefaultNetwork,
		Address:        DefaultAddress,
		DialTimeout:    DefaultDialTimeout,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// applyEnvironmentOverrides updates configuration from GROUPCAST_* variables.
// Invalid values are logged and ignored.
func applyEnvironmentOverrides(config *interfaces.ServiceConfig) {
	parseBoolSetting(EnvUseSimulation, &config.UseSimulation)
	parseNetworkSetting(config)
	if address := os.Getenv(EnvAddress); address != "" {
		config.Address = address
	}
	parseTimeoutSetting(EnvDialTimeout, &config.DialTimeout)
	parseTimeoutSetting(EnvRequestTimeout, &config.RequestTimeout)
	parseDaemonKeySetting(config)
}

// parseBoolSetting updates target from a boolean environment variable. It
// logs a warning if parsing fails and only updates target if parsing succeeds.
func parseBoolSetting(envVar string, target *bool) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseBoolSetting",
			"env_var":     envVar,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *target,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	*target = value
}

// parseTimeoutSetting updates target from a millisecond environment variable.
// It validates the value is within bounds [MinTimeout, MaxTimeout].
func parseTimeoutSetting(envVar string, target *int) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return
	}
	timeout, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     envVar,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *target,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	if err := checkTimeout(timeout); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     envVar,
			"value":       timeout,
			"min":         MinTimeout,
			"max":         MaxTimeout,
			"using_value": *target,
		}).Warn("Timeout value out of bounds, using default")
		return
	}
	*target = timeout
}

func parseNetworkSetting(config *interfaces.ServiceConfig) {
	network := os.Getenv(EnvNetwork)
	if network == "" {
		return
	}
	if err := checkNetwork(network); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseNetworkSetting",
			"env_var":     EnvNetwork,
			"value":       network,
			"using_value": config.Network,
		}).Warn("Unsupported network, using default")
		return
	}
	config.Network = network
}

func parseDaemonKeySetting(config *interfaces.ServiceConfig) {
	key := os.Getenv(EnvDaemonKey)
	if key == "" {
		return
	}
	if _, err := gcnoise.ParsePublicKey(key); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "parseDaemonKeySetting",
			"env_var":  EnvDaemonKey,
			"error":    err.Error(),
		}).Warn("Invalid daemon public key, connections stay unencrypted")
		return
	}
	config.DaemonPublicKey = key
}

func checkTimeout(ms int) error {
	if ms < MinTimeout || ms > MaxTimeout {
		return fmt.Errorf("%w: %d ms outside [%d, %d]", interfaces.ErrInvalidTimeout, ms, MinTimeout, MaxTimeout)
	}
	return nil
}

func checkNetwork(network string) error {
	if network != "unix" && network != "tcp" {
		return fmt.Errorf("%w: got %q", interfaces.ErrUnsupportedNetwork, network)
	}
	return nil
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(function string, config *interfaces.ServiceConfig) {
	logrus.WithFields(logrus.Fields{
		"function":        function,
		"use_simulation":  config.UseSimulation,
		"network":         config.Network,
		"address":         config.Address,
		"dial_timeout":    config.DialTimeout,
		"request_timeout": config.RequestTimeout,
		"encrypted":       config.DaemonPublicKey != "",
	}).Info("Created group service factory with configuration")
}

// CreateService creates a group service from the factory's current configuration.
func (f *ServiceFactory) CreateService() (interfaces.GroupService, error) {
	return f.CreateServiceWithConfig(f.GetCurrentConfig())
}

// CreateServiceWithConfig creates a group service with custom configuration.
// A nil config uses the factory's current configuration.
func (f *ServiceFactory) CreateServiceWithConfig(config *interfaces.ServiceConfig) (interfaces.GroupService, error) {
	if config == nil {
		config = f.GetCurrentConfig()
	}

	logrus.WithFields(logrus.Fields{
		"function":        "CreateServiceWithConfig",
		"use_simulation":  config.UseSimulation,
		"network":         config.Network,
		"address":         config.Address,
		"request_timeout": config.RequestTimeout,
	}).Info("Creating group service implementation")

	if config.UseSimulation {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid simulation config: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "CreateServiceWithConfig",
			"type":     "simulation",
		}).Info("Creating simulated group service")

		return testing.NewSimulatedGroupService(config), nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateServiceWithConfig",
		"type":     "daemon",
	}).Info("Creating daemon group service")

	service, err := real.NewDaemonGroupService(config)
	if err != nil {
		return nil, err
	}
	return service, nil
}

// WithRequestTimeout sets a custom request timeout for the test configuration.
func WithRequestTimeout(timeout int) TestConfigOption {
	return func(c *interfaces.ServiceConfig) {
		c.RequestTimeout = timeout
	}
}

// WithDialTimeout sets a custom dial timeout for the test configuration.
func WithDialTimeout(timeout int) TestConfigOption {
	return func(c *interfaces.ServiceConfig) {
		c.DialTimeout = timeout
	}
}

// CreateSimulationForTesting creates a simulated service specifically for testing.
// Default test configuration uses: DialTimeout=1000ms, RequestTimeout=1000ms.
func (f *ServiceFactory) CreateSimulationForTesting(opts ...TestConfigOption) *testing.SimulatedGroupService {
	testConfig := &interfaces.ServiceConfig{
		UseSimulation:  true,
		DialTimeout:    1000,
		RequestTimeout: 1000,
	}

	for _, opt := range opts {
		opt(testConfig)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "CreateSimulationForTesting",
		"dial_timeout":    testConfig.DialTimeout,
		"request_timeout": testConfig.RequestTimeout,
	}).Info("Creating simulation implementation for testing")

	return testing.NewSimulatedGroupService(testConfig)
}

// SwitchToSimulation switches the configuration to use simulation
func (f *ServiceFactory) SwitchToSimulation() {
	f.setSimulation(true, "SwitchToSimulation")
}

// SwitchToReal switches the configuration to use the daemon
func (f *ServiceFactory) SwitchToReal() {
	f.setSimulation(false, "SwitchToReal")
}

func (f *ServiceFactory) setSimulation(enabled bool, function string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous := f.defaultConfig.UseSimulation
	f.defaultConfig.UseSimulation = enabled

	logrus.WithFields(logrus.Fields{
		"function": function,
		"previous": previous,
		"current":  enabled,
	}).Info("Factory mode switched")
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *ServiceFactory) GetCurrentConfig() *interfaces.ServiceConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	config := *f.defaultConfig
	return &config
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *ServiceFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaultConfig.UseSimulation
}

// UpdateConfig replaces the factory's default configuration after validating it.
func (f *ServiceFactory) UpdateConfig(config *interfaces.ServiceConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "UpdateConfig",
		"old_simulation": f.defaultConfig.UseSimulation,
		"new_simulation": config.UseSimulation,
		"old_address":    f.defaultConfig.Address,
		"new_address":    config.Address,
	}).Info("Updating factory configuration")

	updated := *config
	f.defaultConfig = &updated

	return nil
}
