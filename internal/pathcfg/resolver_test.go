package pathcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"comfyd/pkg/types"
)

func TestBuildListsAllFamilies(t *testing.T) {
	r := Resolver{BakedRoot: "/comfyui/models"}
	cfg := r.Build()
	if cfg.BakedRoot != "/comfyui/models" || cfg.VolumeRoot != "" {
		t.Fatalf("unexpected roots: %+v", cfg)
	}
	if len(cfg.Families) != len(types.AllFamilies()) {
		t.Fatalf("expected all families, got %v", cfg.Families)
	}
}

func TestWriteYAMLBakedOnly(t *testing.T) {
	d := t.TempDir()
	path := filepath.Join(d, "extra_model_paths.yaml")
	cfg := Resolver{BakedRoot: "/comfyui/models"}.Build()
	if err := WriteYAML(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// must be valid YAML for the server's loader
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("generated config not valid yaml: %v", err)
	}
	baked, ok := doc["comfyd_baked"]
	if !ok {
		t.Fatalf("baked section missing: %v", doc)
	}
	if baked["base_path"] != "/comfyui/models" {
		t.Fatalf("base_path: %q", baked["base_path"])
	}
	// every family appears even though the baked dirs are empty
	for _, f := range types.AllFamilies() {
		if baked[string(f)] != string(f)+"/" {
			t.Fatalf("family %s missing or wrong: %q", f, baked[string(f)])
		}
	}
	if _, ok := doc["comfyd_volume"]; ok {
		t.Fatalf("volume section present without a volume root")
	}
}

func TestWriteYAMLWithVolume(t *testing.T) {
	d := t.TempDir()
	path := filepath.Join(d, "cfg.yaml")
	cfg := Resolver{BakedRoot: "/comfyui/models", VolumeRoot: "/runpod-volume/models"}.Build()
	if err := WriteYAML(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	vol, ok := doc["comfyd_volume"]
	if !ok {
		t.Fatalf("volume section missing")
	}
	if vol["base_path"] != "/runpod-volume/models" {
		t.Fatalf("volume base_path: %q", vol["base_path"])
	}
}

func TestListTreeMissingRootIsNonFatal(t *testing.T) {
	if err := ListTree(zerolog.Nop(), filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("missing root must not fail: %v", err)
	}
}

func TestListTreeWalksFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "unet"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "unet", "m.safetensors"), []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ListTree(zerolog.Nop(), root); err != nil {
		t.Fatalf("walk: %v", err)
	}
}
