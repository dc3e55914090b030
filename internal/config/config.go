// Package config provides configuration loading.
//
// Values are resolved in order: defaults, PIXEDIT_* environment variables,
// the TOML config file, and the environment again so it always wins. Every
// value is then normalized by its registered validator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PIXEDIT_"

// ConfigPathEnv points at an explicit config file.
const ConfigPathEnv = EnvPrefix + "CONFIG_PATH"

// File permission constants
const (
	FileModeDir  os.FileMode = 0755
	FileModeFile os.FileMode = 0644

	// FileExtTOML is the file extension for TOML configuration files.
	FileExtTOML = ".toml"
)

var (
	config    map[string]string
	defaults  map[string]string
	mu        sync.RWMutex
	sampleKey = []string{
		"filter_endpoint", "request_timeout_seconds", "storage_backend",
		"max_width", "max_height", "selection_color", "selection_width",
		"blur_intensity", "noise_intensity", "pixel_intensity",
		"export_format", "export_quality",
		"hooks_failure_mode", "hooks_timeout_seconds",
		"logging_enabled", "logging_level", "logging_max_files",
	}
)

func init() {
	initValidators()
}

// Load initializes configuration.
func Load() {
	mu.Lock()
	defer mu.Unlock()

	config = make(map[string]string)
	defaults = make(map[string]string)

	setDefaults()
	loadFromEnv()
	loadFromFile()
	loadFromEnv()
	validate()
	createSampleConfig()
}

func setDefaults() {
	home, _ := os.UserHomeDir()
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		xdgConfigHome = filepath.Join(home, ".config")
	}
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		xdgStateHome = filepath.Join(home, ".local", "state")
	}

	setDefault("config_dir", filepath.Join(xdgConfigHome, "pixedit"))
	setDefault("state_dir", filepath.Join(xdgStateHome, "pixedit"))
	setDefault("storage_backend", "sqlite")
	setDefault("filter_endpoint", "http://localhost:5000/process-image")
	setDefault("request_timeout_seconds", "60")
	setDefault("max_width", "800")
	setDefault("max_height", "600")
	setDefault("selection_color", "#ff0000")
	setDefault("selection_width", "2")
	setDefault("blur_intensity", "1")
	setDefault("noise_intensity", "25")
	setDefault("pixel_intensity", "1")
	setDefault("export_format", "png")
	setDefault("export_quality", "92")
	setDefault("logging_enabled", "false")
	setDefault("logging_level", "info")
	setDefault("logging_max_files", "10")
	setDefault("hooks_dir", filepath.Join(xdgConfigHome, "pixedit", "hooks"))
	setDefault("hooks_failure_mode", "warn")
	setDefault("hooks_timeout_seconds", "30")
	setDefault("debug", "false")
	setDefault("quiet", "false")
}

func setDefault(key, value string) {
	config[key] = value
	defaults[key] = value
}

func configFilePath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return filepath.Join(config["config_dir"], "config"+FileExtTOML)
}

func loadFromFile() {
	path := configFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			colors.Debug(fmt.Sprintf("unable to read config file %s: %v", path, err))
		}
		return
	}
	if strings.ToLower(filepath.Ext(path)) != FileExtTOML {
		colors.Warning(fmt.Sprintf("unsupported config file %s: only %s is read", path, FileExtTOML))
		return
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		colors.Warning(fmt.Sprintf("unable to parse config file %s: %v", path, err))
		return
	}
	for k, v := range raw {
		key := strings.ToLower(k)
		converted, ok := coerceConfigValue(v)
		if !ok {
			colors.Warning(fmt.Sprintf("unsupported config value type for %s: %T", key, v))
			continue
		}
		config[key] = converted
	}
}

// coerceConfigValue converts a decoded TOML scalar to its string form.
func coerceConfigValue(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}

func loadFromEnv() {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) || name == ConfigPathEnv {
			continue
		}
		config[strings.ToLower(strings.TrimPrefix(name, EnvPrefix))] = value
	}
}

func validate() {
	for key, value := range config {
		validator := getValidator(key)
		if validator == nil {
			continue
		}
		def := defaults[key]
		normalized, err := validator(key, value, def)
		if err != nil {
			colors.Warning(fmt.Sprintf("validation error for %s: %v, using default: %s", key, err, def))
			normalized = def
		}
		config[key] = normalized
	}
}

func valueToInterface(val string) any {
	if n, err := strconv.Atoi(val); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return val
}

// createSampleConfig writes the defaults to the config file on first run.
func createSampleConfig() {
	if os.Getenv(ConfigPathEnv) != "" {
		return
	}
	configDir := config["config_dir"]
	if configDir == "" {
		return
	}
	path := filepath.Join(configDir, "config"+FileExtTOML)
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.MkdirAll(configDir, FileModeDir); err != nil {
		colors.Debug(fmt.Sprintf("unable to create config dir %s: %v", configDir, err))
		return
	}

	typed := make(map[string]any, len(sampleKey))
	for _, k := range sampleKey {
		typed[k] = valueToInterface(defaults[k])
	}
	data, err := toml.Marshal(typed)
	if err != nil {
		colors.Warning(fmt.Sprintf("unable to marshal sample config: %v", err))
		return
	}
	header := "# pixedit configuration\n# This file is in TOML format.\n# Environment variables (PIXEDIT_<KEY>) override these values.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), FileModeFile); err != nil {
		colors.Warning(fmt.Sprintf("unable to write sample config to %s: %v", path, err))
	}
}

// Set overrides a single value after Load. Used by CLI flags.
func Set(key, value string) {
	mu.Lock()
	defer mu.Unlock()
	if config == nil {
		config = make(map[string]string)
	}
	config[key] = value
}

// Get returns a configuration value or default.
func Get(key, defaultValue string) string {
	mu.RLock()
	defer mu.RUnlock()
	if val, ok := config[key]; ok {
		return val
	}
	return defaultValue
}

// GetInt returns a configuration value as integer, or default.
func GetInt(key string, defaultValue int) int {
	mu.RLock()
	defer mu.RUnlock()
	val, ok := config[key]
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetBool returns a configuration value as boolean, or default.
func GetBool(key string, defaultValue bool) bool {
	mu.RLock()
	defer mu.RUnlock()
	val, ok := config[key]
	if !ok {
		return defaultValue
	}
	switch normalizeBool(val) {
	case "true":
		return true
	case "false":
		return false
	default:
		return defaultValue
	}
}
