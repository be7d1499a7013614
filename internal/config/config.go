// Package config provides configuration management for the input bridge.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// General contains general application settings.
	General GeneralConfig `yaml:"general"`

	// Remap contains scan code remap entries. Keys and values are
	// canonical 9-bit codes as numeric strings, typically hex, e.g.
	// "0x03A": "0x01D" to turn CapsLock into a Ctrl. A value of
	// "0xFFFF" disables the key.
	Remap map[string]string `yaml:"remap,omitempty"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	// CaptureEnabled starts the bridge with pointer capture active.
	CaptureEnabled bool `yaml:"capture_enabled"`

	// CaptureHotkey toggles pointer capture (e.g. "LCtrl+LAlt+PgUp").
	CaptureHotkey string `yaml:"capture_hotkey,omitempty"`

	// RCtrlIsLAlt translates right Ctrl to left Alt.
	RCtrlIsLAlt bool `yaml:"rctrl_is_lalt"`

	// MouseSensitivity scales relative motion before it reaches the
	// emulated pointer. 1.0 = unchanged.
	MouseSensitivity float64 `yaml:"mouse_sensitivity"`

	// AbsoluteDivisor converts absolute coordinate jumps into relative
	// motion. The default of 25 was tuned against RDP-style input.
	AbsoluteDivisor int `yaml:"absolute_divisor"`

	// APIEnabled enables the HTTP/WebSocket API server.
	APIEnabled bool `yaml:"api_enabled"`

	// APIPort is the port for the API server and the UDP event stream.
	APIPort int `yaml:"api_port"`

	// APIToken is an optional authentication token for API requests.
	APIToken string `yaml:"api_token,omitempty"`

	// HostAddr is the host's "ip:port" for agent mode.
	HostAddr string `yaml:"host_addr,omitempty"`

	// LogLevel is one of trace/debug/info/warn/error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// DefaultConfig returns a new Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			CaptureEnabled:   false,
			CaptureHotkey:    "LCtrl+LAlt+PgUp",
			MouseSensitivity: 1.0,
			AbsoluteDivisor:  25,
			APIEnabled:       true,
			APIPort:          18090,
			LogLevel:         "info",
		},
		Remap: map[string]string{},
	}
}

// Manager handles loading and saving configuration.
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager using the per-OS default
// config location.
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for an explicit path.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file.
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "scanbridge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "scanbridge")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "scanbridge")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Load reads the configuration from disk. A missing file leaves the
// defaults in place.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	if err := yaml.Unmarshal(data, m.config); err != nil {
		m.mu.Unlock()
		return err
	}
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration.
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when the
// configuration changes.
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
