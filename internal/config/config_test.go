package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"comfyd/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "install_root: /opt/comfy\ncomfy_host: 10.0.0.1\ncomfy_port: 9188\nserve_api_locally: true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InstallRoot != "/opt/comfy" || cfg.ComfyHost != "10.0.0.1" || cfg.ComfyPort != 9188 || !cfg.ServeAPILocally {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"install_root":"/c","volume_root":"/v","status_addr":":9999"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InstallRoot != "/c" || cfg.VolumeRoot != "/v" || cfg.StatusAddr != ":9999" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "install_root=\"/x\"\ncomfy_port=8288\nlog_level=\"debug\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InstallRoot != "/x" || cfg.ComfyPort != 8288 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.InstallRoot != "/comfyui" || cfg.VolumeRoot != "/runpod-volume" {
		t.Fatalf("unexpected roots: %+v", cfg)
	}
	if cfg.ComfyBaseURL() != "http://127.0.0.1:8188" {
		t.Fatalf("unexpected base url: %s", cfg.ComfyBaseURL())
	}
	if cfg.PathConfigFile != "/comfyui/extra_model_paths.yaml" {
		t.Fatalf("unexpected path config file: %s", cfg.PathConfigFile)
	}
	if cfg.ReadyMode != "poll" || cfg.ReadyTimeout != 60*time.Second {
		t.Fatalf("unexpected readiness defaults: %+v", cfg)
	}
	// server argv carries the resolved listen/port/path-config flags
	want := []string{
		"python", "-u", "main.py",
		"--disable-auto-launch", "--disable-metadata",
		"--listen", "127.0.0.1", "--port", "8188",
		"--extra-model-paths-config", "/comfyui/extra_model_paths.yaml",
	}
	if len(cfg.ServerCmd) != len(want) {
		t.Fatalf("server cmd: %v", cfg.ServerCmd)
	}
	for i := range want {
		if cfg.ServerCmd[i] != want[i] {
			t.Fatalf("server cmd[%d] = %q, want %q", i, cfg.ServerCmd[i], want[i])
		}
	}
}

func TestHandlerMode(t *testing.T) {
	var cfg Config
	if cfg.HandlerMode() != types.HandlerModeJob {
		t.Fatalf("default mode should be job")
	}
	cfg.ServeAPILocally = true
	if cfg.HandlerMode() != types.HandlerModeAPI {
		t.Fatalf("expected api mode")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("COMFY_HOST", "0.0.0.0")
	t.Setenv("COMFY_PORT", "8288")
	t.Setenv("SERVE_API_LOCALLY", "true")
	t.Setenv("COMFY_API_READY_TIMEOUT", "90")
	t.Setenv("COMFY_POLLING_INTERVAL_MS", "250")
	cfg := FromEnv()
	if cfg.ComfyHost != "0.0.0.0" || cfg.ComfyPort != 8288 {
		t.Fatalf("unexpected host/port: %+v", cfg)
	}
	if !cfg.ServeAPILocally {
		t.Fatalf("expected api mode from env")
	}
	if cfg.ReadyTimeout != 90*time.Second || cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected readiness knobs: %+v", cfg)
	}
}

func TestFromEnvHostPortPair(t *testing.T) {
	t.Setenv("COMFY_HOST", "127.0.0.1:8188")
	cfg := FromEnv()
	cfg.ApplyDefaults()
	if cfg.ComfyHost != "127.0.0.1" || cfg.ComfyPort != 8188 {
		t.Fatalf("unexpected host/port: %q %d", cfg.ComfyHost, cfg.ComfyPort)
	}
	if cfg.ComfyBaseURL() != "http://127.0.0.1:8188" {
		t.Fatalf("unexpected base url: %s", cfg.ComfyBaseURL())
	}

	// an explicit port wins over the suffix
	t.Setenv("COMFY_PORT", "9288")
	cfg = FromEnv()
	if cfg.ComfyHost != "127.0.0.1" || cfg.ComfyPort != 9288 {
		t.Fatalf("explicit port not honored: %q %d", cfg.ComfyHost, cfg.ComfyPort)
	}
}

func TestSplitHostPort(t *testing.T) {
	for _, tc := range []struct {
		in   string
		host string
		port int
	}{
		{"", "", 0},
		{"10.0.0.1", "10.0.0.1", 0},
		{"10.0.0.1:8188", "10.0.0.1", 8188},
		{"comfy.internal:9000", "comfy.internal", 9000},
		{"[::1]:8188", "::1", 8188},
		{"10.0.0.1:nope", "10.0.0.1", 0},
	} {
		h, p := splitHostPort(tc.in)
		if h != tc.host || p != tc.port {
			t.Fatalf("splitHostPort(%q) = %q,%d want %q,%d", tc.in, h, p, tc.host, tc.port)
		}
	}
}

func TestFromEnvSupervisorKnobs(t *testing.T) {
	t.Setenv("COMFYD_CORE_NODE", "CheckpointLoaderSimple")
	t.Setenv("COMFYD_TERM_GRACE_SECONDS", "3")
	cfg := FromEnv()
	if cfg.CoreNode != "CheckpointLoaderSimple" {
		t.Fatalf("core node: %q", cfg.CoreNode)
	}
	if cfg.TermGrace != 3*time.Second {
		t.Fatalf("term grace: %v", cfg.TermGrace)
	}
	cfg = Config{}
	cfg.ApplyDefaults()
	if cfg.TermGrace != 10*time.Second {
		t.Fatalf("default term grace: %v", cfg.TermGrace)
	}
}
