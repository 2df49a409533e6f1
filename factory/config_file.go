package factory

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/opd-ai/groupcast/interfaces"
	gcnoise "github.com/opd-ai/groupcast/noise"
	"github.com/sirupsen/logrus"
)

type fileConfig struct {
	UseSimulation    bool   `toml:"use_simulation"`
	Network          string `toml:"network"`
	Address          string `toml:"address"`
	DialTimeoutMS    int    `toml:"dial_timeout_ms"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
	DaemonPublicKey  string `toml:"daemon_public_key"`
}

// LoadConfigFile applies the keys defined in the TOML file at path to config.
// Keys absent from the file leave config untouched. Unlike environment
// overrides, an invalid value in the file is an error.
//
//	use_simulation = false
//	network = "tcp"
//	address = "10.0.0.5:5405"
//	dial_timeout_ms = 2000
//	request_timeout_ms = 5000
//	daemon_public_key = "<64 hex characters>"
func LoadConfigFile(path string, config *interfaces.ServiceConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load groupcast config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		logrus.WithFields(logrus.Fields{
			"function": "LoadConfigFile",
			"path":     path,
			"keys":     strings.Join(keys, ","),
		}).Warn("Ignoring unknown configuration keys")
	}

	if meta.IsDefined("use_simulation") {
		config.UseSimulation = raw.UseSimulation
	}

	if meta.IsDefined("network") {
		network := strings.TrimSpace(raw.Network)
		if err := checkNetwork(network); err != nil {
			return fmt.Errorf("parse network: %w", err)
		}
		config.Network = network
	}

	if meta.IsDefined("address") {
		config.Address = strings.TrimSpace(raw.Address)
	}

	if meta.IsDefined("dial_timeout_ms") {
		if err := checkTimeout(raw.DialTimeoutMS); err != nil {
			return fmt.Errorf("parse dial_timeout_ms: %w", err)
		}
		config.DialTimeout = raw.DialTimeoutMS
	}

	if meta.IsDefined("request_timeout_ms") {
		if err := checkTimeout(raw.RequestTimeoutMS); err != nil {
			return fmt.Errorf("parse request_timeout_ms: %w", err)
		}
		config.RequestTimeout = raw.RequestTimeoutMS
	}

	if meta.IsDefined("daemon_public_key") {
		key := strings.TrimSpace(raw.DaemonPublicKey)
		if key != "" {
			if _, err := gcnoise.ParsePublicKey(key); err != nil {
				return fmt.Errorf("parse daemon_public_key: %w", err)
			}
		}
		config.DaemonPublicKey = key
	}

	logrus.WithFields(logrus.Fields{
		"function": "LoadConfigFile",
		"path":     path,
		"keys":     len(meta.Keys()),
	}).Debug("Loaded configuration file")

	return nil
}
