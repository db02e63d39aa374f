package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"comfyd/pkg/types"
)

// Config holds runtime parameters for the worker.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	// InstallRoot is the inference server's install directory; it must
	// exist at startup or the supervisor fails fast.
	InstallRoot string `json:"install_root" yaml:"install_root" toml:"install_root"`
	// VolumeRoot is the externally mounted directory tree (may be absent).
	VolumeRoot string `json:"volume_root" yaml:"volume_root" toml:"volume_root"`
	// PathConfigFile is where the merged model-search config is written.
	PathConfigFile string `json:"path_config_file" yaml:"path_config_file" toml:"path_config_file"`

	// ComfyHost/ComfyPort is where the inference server listens.
	ComfyHost string `json:"comfy_host" yaml:"comfy_host" toml:"comfy_host"`
	ComfyPort int    `json:"comfy_port" yaml:"comfy_port" toml:"comfy_port"`

	// ServeAPILocally selects continuous-API handler mode.
	ServeAPILocally bool   `json:"serve_api_locally" yaml:"serve_api_locally" toml:"serve_api_locally"`
	APIHost         string `json:"api_host" yaml:"api_host" toml:"api_host"`
	APIPort         int    `json:"api_port" yaml:"api_port" toml:"api_port"`

	// ReadyMode is "poll" (health-check loop) or "delay" (fixed sleep).
	ReadyMode     string        `json:"ready_mode" yaml:"ready_mode" toml:"ready_mode"`
	ReadyTimeout  time.Duration `json:"ready_timeout" yaml:"ready_timeout" toml:"ready_timeout"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	ReadyDelay    time.Duration `json:"ready_delay" yaml:"ready_delay" toml:"ready_delay"`
	RequireVolume bool          `json:"require_volume" yaml:"require_volume" toml:"require_volume"`
	// CoreNode overrides the node name the readiness probe requires in
	// the server's /object_info response.
	CoreNode string `json:"core_node" yaml:"core_node" toml:"core_node"`
	// TermGrace is the SIGTERM-to-SIGKILL window when tearing children down.
	TermGrace time.Duration `json:"term_grace" yaml:"term_grace" toml:"term_grace"`

	// ServerCmd/HandlerCmd override the launched commands (argv form).
	ServerCmd  []string `json:"server_cmd" yaml:"server_cmd" toml:"server_cmd"`
	HandlerCmd []string `json:"handler_cmd" yaml:"handler_cmd" toml:"handler_cmd"`
	// ExtraEnv is appended to both children's environments (KEY=value form).
	ExtraEnv []string `json:"extra_env" yaml:"extra_env" toml:"extra_env"`

	StatusAddr string `json:"status_addr" yaml:"status_addr" toml:"status_addr"`
	LogLevel   string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

const (
	defaultInstallRoot  = "/comfyui"
	defaultVolumeRoot   = "/runpod-volume"
	defaultComfyHost    = "127.0.0.1"
	defaultComfyPort    = 8188
	defaultAPIHost      = "0.0.0.0"
	defaultAPIPort      = 8000
	defaultStatusAddr   = ":9100"
	defaultReadyTimeout = 60 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultReadyDelay   = 8 * time.Second
	defaultTermGrace    = 10 * time.Second
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// FromEnv builds a Config from the runtime environment. Unset variables
// leave zero values for ApplyDefaults to fill.
func FromEnv() Config {
	// COMFY_HOST historically carries a host:port pair; a bare host is
	// accepted too. An explicit COMFY_PORT wins over the suffix.
	host, port := splitHostPort(os.Getenv("COMFY_HOST"))
	return Config{
		InstallRoot:     os.Getenv("COMFYD_INSTALL_ROOT"),
		VolumeRoot:      os.Getenv("COMFYD_VOLUME_ROOT"),
		PathConfigFile:  os.Getenv("COMFYD_PATH_CONFIG"),
		ComfyHost:       host,
		ComfyPort:       envInt("COMFY_PORT", port),
		ServeAPILocally: envBool("SERVE_API_LOCALLY"),
		APIHost:         os.Getenv("COMFYD_API_HOST"),
		APIPort:         envInt("COMFYD_API_PORT", 0),
		ReadyMode:       os.Getenv("COMFYD_READY_MODE"),
		ReadyTimeout:    time.Duration(envInt("COMFY_API_READY_TIMEOUT", 0)) * time.Second,
		PollInterval:    time.Duration(envInt("COMFY_POLLING_INTERVAL_MS", 0)) * time.Millisecond,
		RequireVolume:   envBool("COMFYD_REQUIRE_VOLUME"),
		CoreNode:        os.Getenv("COMFYD_CORE_NODE"),
		TermGrace:       time.Duration(envInt("COMFYD_TERM_GRACE_SECONDS", 0)) * time.Second,
		StatusAddr:      os.Getenv("COMFYD_STATUS_ADDR"),
		LogLevel:        os.Getenv("COMFYD_LOG_LEVEL"),
	}
}

// splitHostPort splits an optional ":port" suffix off a host string.
// A bare host (or an unparseable port) comes back with port 0.
func splitHostPort(s string) (string, int) {
	if s == "" {
		return "", 0
	}
	h, p, err := net.SplitHostPort(s)
	if err != nil {
		return s, 0
	}
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 {
		return h, 0
	}
	return h, n
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.InstallRoot == "" {
		c.InstallRoot = defaultInstallRoot
	}
	if c.VolumeRoot == "" {
		c.VolumeRoot = defaultVolumeRoot
	}
	if c.PathConfigFile == "" {
		c.PathConfigFile = filepath.Join(c.InstallRoot, "extra_model_paths.yaml")
	}
	if c.ComfyHost == "" {
		c.ComfyHost = defaultComfyHost
	}
	if c.ComfyPort == 0 {
		c.ComfyPort = defaultComfyPort
	}
	if c.APIHost == "" {
		c.APIHost = defaultAPIHost
	}
	if c.APIPort == 0 {
		c.APIPort = defaultAPIPort
	}
	if c.ReadyMode == "" {
		c.ReadyMode = "poll"
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ReadyDelay <= 0 {
		c.ReadyDelay = defaultReadyDelay
	}
	if c.TermGrace <= 0 {
		c.TermGrace = defaultTermGrace
	}
	if c.StatusAddr == "" {
		c.StatusAddr = defaultStatusAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.ServerCmd) == 0 {
		c.ServerCmd = []string{
			"python", "-u", "main.py",
			"--disable-auto-launch",
			"--disable-metadata",
			"--listen", c.ComfyHost,
			"--port", strconv.Itoa(c.ComfyPort),
			"--extra-model-paths-config", c.PathConfigFile,
		}
	}
	if len(c.HandlerCmd) == 0 {
		c.HandlerCmd = []string{"python", "-u", "/rp_handler.py"}
	}
}

// HandlerMode derives the handler mode from the API flag.
func (c Config) HandlerMode() types.HandlerMode {
	if c.ServeAPILocally {
		return types.HandlerModeAPI
	}
	return types.HandlerModeJob
}

// ComfyBaseURL is the inference server's HTTP base URL.
func (c Config) ComfyBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.ComfyHost, c.ComfyPort)
}

// BakedModelsDir is the in-image models root.
func (c Config) BakedModelsDir() string { return filepath.Join(c.InstallRoot, "models") }

// VolumeModelsDir is the models root under the mounted volume.
func (c Config) VolumeModelsDir() string { return filepath.Join(c.VolumeRoot, "models") }

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
