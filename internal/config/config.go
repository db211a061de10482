// Package config handles loading tickler.toml configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/amonks/tickler/internal/paths"
)

// EnvConfigPath names the environment variable holding an override config path.
const EnvConfigPath = "TICKLER_CONFIG"

// Reminder map backends.
const (
	MapSQLite = "sqlite"
	MapFile   = "file"
)

const (
	defaultLeadTime     = 10 * time.Minute
	defaultDeadlineTime = "09:00"
	defaultPollInterval = time.Second
	defaultNotifyEvery  = 15 * time.Second
)

// ErrInvalidConfig is returned when a config value cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the tickler configuration file.
type Config struct {
	// User is the id of the signed-in user whose collection is synced.
	User      string    `toml:"user"`
	Store     Store     `toml:"store"`
	Reminders Reminders `toml:"reminders"`
	Notify    Notify    `toml:"notify"`

	leadTimeSet bool
}

// Store configures the local document store.
type Store struct {
	// Path is the SQLite database file. Defaults to ~/.local/share/tickler/tickler.db.
	Path string `toml:"path"`
	// PollInterval is how often the subscription checks for changes made by other processes.
	PollInterval time.Duration `toml:"poll-interval"`
}

// Reminders configures the reminder scheduler.
type Reminders struct {
	// LeadTime is how long before a deadline the reminder fires.
	LeadTime time.Duration `toml:"lead-time"`
	// DeadlineTime is the time of day ("15:04") given to date-only deadlines.
	DeadlineTime string `toml:"deadline-time"`
	// Map selects where the reminder map is persisted: "sqlite" or "file".
	Map string `toml:"map"`
	// StateDir holds the reminder state file when Map is "file".
	StateDir string `toml:"state-dir"`
}

// Notify configures delivery of due reminders.
type Notify struct {
	// Interval is how often the delivery loop checks for due reminders.
	Interval time.Duration `toml:"interval"`
	// Command is a script run for each delivered reminder.
	// Can include a shebang line; defaults to bash if not specified.
	Command string `toml:"command"`
}

// Load loads the global config file merged with the override file at
// overridePath (or $TICKLER_CONFIG when overridePath is empty).
// Missing files are treated as empty. Defaults fill unset values.
func Load(overridePath string) (*Config, error) {
	globalPath, err := paths.DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	if overridePath == "" {
		overridePath = os.Getenv(EnvConfigPath)
	}
	overrideCfg, overrideMeta := &Config{}, toml.MetaData{}
	if overridePath != "" {
		overrideCfg, overrideMeta, err = loadConfigFile(overridePath)
		if err != nil {
			return nil, err
		}
	}

	merged := mergeConfigs(globalCfg, overrideCfg, globalMeta, overrideMeta)
	merged.applyDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, overrideCfg *Config, globalMeta, overrideMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if overrideCfg == nil {
		overrideCfg = &Config{}
	}

	merged := Config{}
	merged.User = mergeString(overrideMeta.IsDefined("user"), overrideCfg.User, globalCfg.User)
	merged.Store.Path = mergeString(overrideMeta.IsDefined("store", "path"), overrideCfg.Store.Path, globalCfg.Store.Path)
	merged.Store.PollInterval = mergeDuration(overrideMeta.IsDefined("store", "poll-interval"), overrideCfg.Store.PollInterval, globalCfg.Store.PollInterval)
	merged.Reminders.LeadTime = mergeDuration(overrideMeta.IsDefined("reminders", "lead-time"), overrideCfg.Reminders.LeadTime, globalCfg.Reminders.LeadTime)
	merged.Reminders.DeadlineTime = mergeString(overrideMeta.IsDefined("reminders", "deadline-time"), overrideCfg.Reminders.DeadlineTime, globalCfg.Reminders.DeadlineTime)
	merged.Reminders.Map = mergeString(overrideMeta.IsDefined("reminders", "map"), overrideCfg.Reminders.Map, globalCfg.Reminders.Map)
	merged.Reminders.StateDir = mergeString(overrideMeta.IsDefined("reminders", "state-dir"), overrideCfg.Reminders.StateDir, globalCfg.Reminders.StateDir)
	merged.Notify.Interval = mergeDuration(overrideMeta.IsDefined("notify", "interval"), overrideCfg.Notify.Interval, globalCfg.Notify.Interval)
	merged.Notify.Command = mergeString(overrideMeta.IsDefined("notify", "command"), overrideCfg.Notify.Command, globalCfg.Notify.Command)

	// lead-time = "0s" is meaningful, so remember that it was set explicitly.
	merged.leadTimeSet = overrideMeta.IsDefined("reminders", "lead-time") || globalMeta.IsDefined("reminders", "lead-time")

	return &merged
}

func mergeString(overrideDefined bool, overrideValue, globalValue string) string {
	value := globalValue
	if overrideDefined {
		value = overrideValue
	}
	return strings.TrimSpace(value)
}

func mergeDuration(overrideDefined bool, overrideValue, globalValue time.Duration) time.Duration {
	if overrideDefined {
		return overrideValue
	}
	return globalValue
}

func (cfg *Config) applyDefaults() {
	if cfg.Store.PollInterval <= 0 {
		cfg.Store.PollInterval = defaultPollInterval
	}
	if !cfg.leadTimeSet && cfg.Reminders.LeadTime == 0 {
		cfg.Reminders.LeadTime = defaultLeadTime
	}
	if cfg.Reminders.DeadlineTime == "" {
		cfg.Reminders.DeadlineTime = defaultDeadlineTime
	}
	if cfg.Reminders.Map == "" {
		cfg.Reminders.Map = MapSQLite
	}
	if cfg.Notify.Interval <= 0 {
		cfg.Notify.Interval = defaultNotifyEvery
	}
}

// Validate checks that config values are usable.
func (cfg *Config) Validate() error {
	if cfg.Reminders.LeadTime < 0 {
		return fmt.Errorf("%w: reminders.lead-time must not be negative", ErrInvalidConfig)
	}
	if _, _, err := cfg.Reminders.DeadlineClock(); err != nil {
		return err
	}
	switch cfg.Reminders.Map {
	case MapSQLite, MapFile:
	default:
		return fmt.Errorf("%w: reminders.map %q (valid: %s, %s)", ErrInvalidConfig, cfg.Reminders.Map, MapSQLite, MapFile)
	}
	return nil
}

// DeadlineClock returns the hour and minute of DeadlineTime.
func (r Reminders) DeadlineClock() (hour, minute int, err error) {
	value := r.DeadlineTime
	if value == "" {
		value = defaultDeadlineTime
	}
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reminders.deadline-time %q (expected HH:MM)", ErrInvalidConfig, value)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// DBPath returns the configured database path, defaulting under the data dir.
func (cfg *Config) DBPath() (string, error) {
	return paths.ResolveWithDefault(cfg.Store.Path, paths.DefaultDBPath)
}

// StateDir returns the configured reminder state directory.
func (cfg *Config) StateDir() (string, error) {
	return paths.ResolveWithDefault(cfg.Reminders.StateDir, paths.DefaultStateDir)
}

// RunScript executes a script in the given directory with env appended to
// the process environment.
// If the script starts with a shebang (#!), that interpreter is used.
// Otherwise, the script is run with /bin/bash.
func RunScript(dir, script string, env []string) error {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}

	var interpreter string
	var scriptBody string

	if strings.HasPrefix(script, "#!") {
		lines := strings.SplitN(script, "\n", 2)
		interpreter = strings.TrimSpace(strings.TrimPrefix(lines[0], "#!"))
		if len(lines) > 1 {
			scriptBody = lines[1]
		}
	} else {
		interpreter = "/bin/bash"
		scriptBody = script
	}

	// Parse interpreter and args (e.g., "/usr/bin/env python3" or "/bin/bash -e")
	parts := strings.Fields(interpreter)
	if len(parts) == 0 {
		return fmt.Errorf("empty interpreter in shebang")
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = strings.NewReader(scriptBody)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
