// Package supervisor owns the worker lifecycle: it launches the inference
// server, decides when it is ready, hands control to the request handler,
// and binds the container's exit code to the handler's.
package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"comfyd/internal/common/fsutil"
	"comfyd/internal/pathcfg"
	"comfyd/pkg/types"
)

// Config encapsulates all tunables for Supervisor construction.
type Config struct {
	// InstallRoot is the inference server's install directory and the
	// working directory for ServerCmd. Must exist at startup.
	InstallRoot string
	// ServerCmd is the inference server argv.
	ServerCmd []string
	// HandlerCmd is the request handler argv before mode flags.
	HandlerCmd []string
	// HandlerMode selects continuous-API vs one-job serving.
	HandlerMode types.HandlerMode
	// APIHost/APIPort are the handler's bind address in API mode.
	APIHost string
	APIPort int

	// BaseURL is the inference server's HTTP base for readiness probes.
	BaseURL string
	// ReadyMode is ReadyModePoll or ReadyModeDelay.
	ReadyMode    string
	ReadyTimeout time.Duration
	PollInterval time.Duration
	ReadyDelay   time.Duration
	// CoreNode overrides the node checked in /object_info.
	CoreNode string

	// VolumeModelsDir is listed for diagnostics before launch.
	VolumeModelsDir string
	// RequireVolume makes a missing volume fatal instead of diagnostic.
	RequireVolume bool
	// PathConfigFile is dumped for diagnostics before launch.
	PathConfigFile string

	// PreloadDirs overrides the allocator scan locations (tests).
	PreloadDirs []string
	// ExtraEnv is appended to both children's environments.
	ExtraEnv []string
	// TermGrace is the SIGTERM-to-SIGKILL window on teardown.
	TermGrace time.Duration

	Logger zerolog.Logger
}

// Supervisor drives exactly two cooperating processes per container
// instance. Its own execution is strictly sequential; the only
// concurrency is the wait goroutines on the children.
type Supervisor struct {
	cfg    Config
	client *http.Client

	mu         sync.Mutex
	state      types.SupervisorState
	started    time.Time
	serverPID  int
	handlerPID int
	tail       syncBuffer
}

// syncBuffer guards the stderr tail: exec copies stderr from its own
// goroutine while the readiness path reads the tail for error reports.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.buf.Bytes()
	if len(p) > n {
		p = p[len(p)-n:]
	}
	return string(p)
}

// New constructs a Supervisor. Defaults: poll readiness, 60s timeout,
// 50ms poll interval, 8s fallback delay, 10s term grace.
func New(cfg Config) *Supervisor {
	if cfg.ReadyMode == "" {
		cfg.ReadyMode = ReadyModePoll
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.ReadyDelay <= 0 {
		cfg.ReadyDelay = 8 * time.Second
	}
	if cfg.TermGrace <= 0 {
		cfg.TermGrace = 10 * time.Second
	}
	return &Supervisor{
		cfg: cfg,
		// Timeout=0: probe requests carry their own context deadlines.
		client:  &http.Client{Timeout: 0},
		state:   types.StateNotStarted,
		started: time.Now(),
	}
}

// Run executes the full lifecycle and returns the container exit code.
// The code is the handler's own on a normal run; the reserved codes in
// errors.go mark the supervisor's own failures.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	log := s.cfg.Logger

	if len(s.cfg.ServerCmd) == 0 || len(s.cfg.HandlerCmd) == 0 {
		err := fmt.Errorf("supervisor: server and handler commands must be non-empty")
		log.Error().Err(err).Msg("startup guard failed")
		s.setState(types.StateCrashed)
		return 1, err
	}

	// Guard: no launches past a missing install root.
	if !fsutil.DirExists(s.cfg.InstallRoot) {
		err := installRootMissingError{path: s.cfg.InstallRoot}
		log.Error().Err(err).Msg("startup guard failed")
		s.setState(types.StateCrashed)
		return ExitInstallRootMissing, err
	}
	if s.cfg.RequireVolume && !fsutil.DirExists(s.cfg.VolumeModelsDir) {
		err := volumeMissingError{path: s.cfg.VolumeModelsDir}
		log.Error().Err(err).Msg("startup guard failed")
		s.setState(types.StateCrashed)
		return ExitVolumeMissing, err
	}

	// Diagnostics before any failure-prone step. Missing paths log and
	// continue; they only explain empty inference results downstream.
	if s.cfg.VolumeModelsDir != "" {
		if err := pathcfg.ListTree(log, s.cfg.VolumeModelsDir); err != nil {
			log.Warn().Err(err).Msg("volume listing incomplete")
		}
	}
	if s.cfg.PathConfigFile != "" {
		pathcfg.DumpFile(log, s.cfg.PathConfigFile)
	}

	env := append(os.Environ(), s.cfg.ExtraEnv...)
	if alloc := DetectAllocator(s.cfg.PreloadDirs...); alloc != "" {
		log.Info().Str("lib", alloc).Msg("allocator preload selected")
		env = append(env, "LD_PRELOAD="+alloc)
	}

	s.setState(types.StateInferenceStarting)
	server := exec.Command(s.cfg.ServerCmd[0], s.cfg.ServerCmd[1:]...)
	server.Dir = s.cfg.InstallRoot
	server.Env = env
	server.Stdout = os.Stdout
	server.Stderr = io.MultiWriter(os.Stderr, &s.tail)
	if err := server.Start(); err != nil {
		s.setState(types.StateCrashed)
		return 1, fmt.Errorf("start inference server: %w", err)
	}
	s.setServerPID(server.Process.Pid)
	log.Info().Int("pid", server.Process.Pid).Strs("argv", s.cfg.ServerCmd).Msg("inference server started")
	serverDone := watch(server)

	if err := s.waitReady(ctx, serverDone); err != nil {
		log.Error().Err(err).Msg("inference server never became ready")
		_ = stopProcess(server, serverDone, s.cfg.TermGrace)
		s.setState(types.StateCrashed)
		return ExitStartupTimeout, err
	}
	s.setState(types.StateInferenceReady)
	log.Info().Str("base_url", s.cfg.BaseURL).Msg("inference server ready")

	s.setState(types.StateHandlerStarting)
	argv := buildHandlerArgs(s.cfg.HandlerCmd, s.cfg.HandlerMode, s.cfg.APIHost, s.cfg.APIPort)
	handler := exec.Command(argv[0], argv[1:]...)
	handler.Env = env
	handler.Stdin = os.Stdin
	handler.Stdout = os.Stdout
	handler.Stderr = os.Stderr
	if err := handler.Start(); err != nil {
		_ = stopProcess(server, serverDone, s.cfg.TermGrace)
		s.setState(types.StateCrashed)
		return 1, fmt.Errorf("start handler: %w", err)
	}
	s.setHandlerPID(handler.Process.Pid)
	log.Info().Int("pid", handler.Process.Pid).Str("mode", string(s.cfg.HandlerMode)).Strs("argv", argv).Msg("handler started")
	s.setState(types.StateRunning)
	handlerDone := watch(handler)

	var herr error
	select {
	case herr = <-handlerDone:
	case <-ctx.Done():
		log.Info().Msg("stop requested, terminating handler")
		herr = stopProcess(handler, handlerDone, s.cfg.TermGrace)
	}

	// Handler is gone; release the inference server explicitly rather
	// than leaving an orphan for the container runtime to reap.
	_ = stopProcess(server, serverDone, s.cfg.TermGrace)

	code := exitCode(herr)
	if code == 0 {
		s.setState(types.StateExited)
		log.Info().Msg("handler exited cleanly")
		return 0, nil
	}
	s.setState(types.StateCrashed)
	log.Error().Int("code", code).Err(herr).Msg("handler exited with error")
	return code, nil
}

// buildHandlerArgs appends the mode-dependent flags. API mode adds the
// serve flag and its bind host/port; job mode launches the base argv as-is.
func buildHandlerArgs(cmd []string, mode types.HandlerMode, host string, port int) []string {
	argv := append([]string(nil), cmd...)
	if mode == types.HandlerModeAPI {
		argv = append(argv,
			"--rp_serve_api",
			fmt.Sprintf("--rp_api_host=%s", host),
			fmt.Sprintf("--rp_api_port=%d", port),
		)
	}
	return argv
}

func (s *Supervisor) setState(st types.SupervisorState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	recordState(st)
}

func (s *Supervisor) setServerPID(pid int) {
	s.mu.Lock()
	s.serverPID = pid
	s.mu.Unlock()
}

func (s *Supervisor) setHandlerPID(pid int) {
	s.mu.Lock()
	s.handlerPID = pid
	s.mu.Unlock()
}

func (s *Supervisor) stderrTail() string {
	return s.tail.Tail(4096)
}

// State returns the current lifecycle position.
func (s *Supervisor) State() types.SupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the handler is serving.
func (s *Supervisor) Ready() bool {
	return s.State() == types.StateRunning
}

// Status implements the sidecar's service interface.
func (s *Supervisor) Status() types.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.StatusResponse{
		State:         s.state,
		HandlerMode:   s.cfg.HandlerMode,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		ServerPID:     s.serverPID,
		HandlerPID:    s.handlerPID,
	}
}
