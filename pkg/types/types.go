package types

import "fmt"

// Family is a category of model artifact with its own search directory.
// The string value doubles as the directory name under a models root.
type Family string

const (
	FamilyCheckpoints Family = "checkpoints"
	FamilyVAE         Family = "vae"
	FamilyUNet        Family = "unet"
	FamilyCLIP        Family = "clip"
)

// AllFamilies lists every family in directory-layout order.
func AllFamilies() []Family {
	return []Family{FamilyCheckpoints, FamilyVAE, FamilyUNet, FamilyCLIP}
}

// ModelSet is a named preset selecting which model artifacts are staged
// into a build. Exactly one is active per image; immutable after build.
type ModelSet string

const (
	ModelSetSDXL        ModelSet = "sdxl"
	ModelSetSD3         ModelSet = "sd3"
	ModelSetFluxSchnell ModelSet = "flux1-schnell"
	ModelSetFluxDev     ModelSet = "flux1-dev"
	ModelSetAll         ModelSet = "all"
)

// AllModelSets lists every valid selector token, superset last.
func AllModelSets() []ModelSet {
	return []ModelSet{ModelSetSDXL, ModelSetSD3, ModelSetFluxSchnell, ModelSetFluxDev, ModelSetAll}
}

// ParseModelSet validates a selector token.
func ParseModelSet(s string) (ModelSet, error) {
	for _, m := range AllModelSets() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown model set: %q", s)
}

// ArtifactSpec describes one remote model artifact.
type ArtifactSpec struct {
	Family Family `json:"family"`
	// Remote source URL.
	URL string `json:"url"`
	// Destination path relative to the models root,
	// e.g. "unet/flux1-schnell.safetensors".
	Dest string `json:"dest"`
	// Gated marks artifacts that require a bearer credential to fetch.
	Gated bool `json:"gated,omitempty"`
}

// Plan is the resolved provisioning decision for one ModelSet.
type Plan struct {
	Set ModelSet `json:"set"`
	// Artifacts to fetch; destination paths are unique within a plan.
	Artifacts []ArtifactSpec `json:"artifacts"`
	// Families lists every family directory to create, selected or not,
	// so a partially matching selector never leaves a missing directory.
	Families []Family `json:"families"`
}

// PathConfig describes, per family, the directories the inference server
// should search, in priority order: baked root first, then the mounted
// volume root when one is configured.
type PathConfig struct {
	BakedRoot string `json:"baked_root"`
	// VolumeRoot is empty when the deployment has no mounted volume.
	VolumeRoot string   `json:"volume_root,omitempty"`
	Families   []Family `json:"families"`
}

// HandlerMode selects how the request handler serves work.
type HandlerMode string

const (
	// HandlerModeJob serves one job per container lifecycle.
	HandlerModeJob HandlerMode = "job"
	// HandlerModeAPI serves continuously as a local API and keeps the
	// container alive until externally stopped.
	HandlerModeAPI HandlerMode = "api"
)

// SupervisorState is the worker lifecycle position.
type SupervisorState string

const (
	StateNotStarted        SupervisorState = "not_started"
	StateInferenceStarting SupervisorState = "inference_starting"
	StateInferenceReady    SupervisorState = "inference_ready"
	StateHandlerStarting   SupervisorState = "handler_starting"
	StateRunning           SupervisorState = "running"
	StateExited            SupervisorState = "exited"
	StateCrashed           SupervisorState = "crashed"
)

// StatusResponse is returned by GET /status on the sidecar.
type StatusResponse struct {
	// Current lifecycle state.
	// example: running
	State SupervisorState `json:"state" example:"running"`
	// Active handler mode.
	// example: api
	HandlerMode HandlerMode `json:"handler_mode" example:"api"`
	// Uptime of the supervisor in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Process ID of the inference server (once launched).
	// example: 12345
	ServerPID int `json:"server_pid,omitempty" example:"12345"`
	// Process ID of the request handler (once launched).
	// example: 12346
	HandlerPID int `json:"handler_pid,omitempty" example:"12346"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: not ready
	Error string `json:"error" example:"not ready"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}
