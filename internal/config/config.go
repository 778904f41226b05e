// SPDX-License-Identifier: MPL-2.0

// Package config loads harness configuration from an optional TOML file
// and QINSTALLTEST_* environment variables, with defaults for everything.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"qinstalltest/internal/issue"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "qinstalltest"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"

	// InvocationUser runs the install script as the unprivileged test user.
	InvocationUser InvocationMode = "user"
	// InvocationRoot runs the install script as root and chowns the result.
	InvocationRoot InvocationMode = "root"
)

// ErrInvalidInvocationMode is the sentinel error wrapped by InvalidInvocationModeError.
var ErrInvalidInvocationMode = errors.New("invalid installer invocation mode")

type (
	// InvocationMode selects who runs the vendor install script. Both
	// patterns exist in this harness's history; the mode is configuration,
	// not contract.
	InvocationMode string

	// InvalidInvocationModeError is returned when an InvocationMode is not recognized.
	InvalidInvocationModeError struct {
		Value InvocationMode
	}

	// Config holds all harness settings.
	Config struct {
		// RuntimePriority is the container runtime detection order.
		RuntimePriority []string `mapstructure:"runtime_priority"`
		// InstallerInvocation selects who runs install.sh (user or root).
		InstallerInvocation InvocationMode `mapstructure:"installer_invocation"`
		// WorkspaceDir is the host directory bind-mounted into containers;
		// it must contain the bundle/ tree.
		WorkspaceDir string `mapstructure:"workspace_dir"`
		// ResultsDir is where scenario records and the summary are written.
		ResultsDir string `mapstructure:"results_dir"`
		// InstallUser is the unprivileged user created inside containers.
		InstallUser string `mapstructure:"install_user"`
		// PullRetries bounds image pull attempts on transient failures.
		PullRetries int `mapstructure:"pull_retries"`
		// KeepContainers skips container teardown after each scenario.
		KeepContainers bool `mapstructure:"keep_containers"`
	}
)

// Validate returns an error if the InvocationMode is not one of the defined modes.
func (m InvocationMode) Validate() error {
	switch m {
	case InvocationUser, InvocationRoot:
		return nil
	default:
		return &InvalidInvocationModeError{Value: m}
	}
}

// String returns the string representation of the InvocationMode.
func (m InvocationMode) String() string { return string(m) }

// Error implements the error interface.
func (e *InvalidInvocationModeError) Error() string {
	return fmt.Sprintf("invalid installer invocation mode %q (valid: user, root)", e.Value)
}

// Unwrap returns ErrInvalidInvocationMode so callers can use errors.Is.
func (e *InvalidInvocationModeError) Unwrap() error { return ErrInvalidInvocationMode }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RuntimePriority:     []string{"finch", "podman", "docker"},
		InstallerInvocation: InvocationUser,
		WorkspaceDir:        ".",
		ResultsDir:          "results",
		InstallUser:         "quser",
		PullRetries:         3,
	}
}

// ConfigDir returns the harness configuration directory:
// $XDG_CONFIG_HOME/qinstalltest, defaulting to ~/.config/qinstalltest.
func ConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// Load reads configuration. An explicit path is used exclusively and must
// exist; otherwise the default location is tried and silently skipped when
// absent. Environment variables (QINSTALLTEST_*) override file values.
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("runtime_priority", defaults.RuntimePriority)
	v.SetDefault("installer_invocation", string(defaults.InstallerInvocation))
	v.SetDefault("workspace_dir", defaults.WorkspaceDir)
	v.SetDefault("results_dir", defaults.ResultsDir)
	v.SetDefault("install_user", defaults.InstallUser)
	v.SetDefault("pull_retries", defaults.PullRetries)
	v.SetDefault("keep_containers", defaults.KeepContainers)

	v.SetEnvPrefix("QINSTALLTEST")
	v.AutomaticEnv()

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(err).
				BuildError()
		}
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse configuration").
				WithResource(configFilePath).
				WithSuggestion("Check TOML syntax").
				Wrap(err).
				BuildError()
		}
	} else if dir, err := ConfigDir(); err == nil {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("parse configuration").
					WithResource(filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)).
					WithSuggestion("Check TOML syntax").
					Wrap(err).
					BuildError()
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.InstallerInvocation.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
