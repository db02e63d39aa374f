package provision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"comfyd/pkg/types"
)

func destSet(plan types.Plan) map[string]bool {
	m := make(map[string]bool, len(plan.Artifacts))
	for _, a := range plan.Artifacts {
		m[a.Dest] = true
	}
	return m
}

func TestResolveFluxSchnell(t *testing.T) {
	plan, err := Resolve(types.ModelSetFluxSchnell)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{
		"unet/flux1-schnell.safetensors",
		"vae/flux1-schnell-ae.safetensors",
		"clip/clip_l.safetensors",
		"clip/t5xxl_fp8_e4m3fn.safetensors",
	}
	got := destSet(plan)
	if len(got) != len(want) {
		t.Fatalf("expected %d artifacts, got %v", len(want), plan.Artifacts)
	}
	for _, d := range want {
		if !got[d] {
			t.Fatalf("missing artifact: %s", d)
		}
	}
	if got["checkpoints/sd_xl_base_1.0.safetensors"] {
		t.Fatalf("sdxl checkpoint must not be planned for flux1-schnell")
	}
}

func TestResolveAllMergesAndDedupes(t *testing.T) {
	plan, err := Resolve(types.ModelSetAll)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := destSet(plan)
	if len(got) != len(plan.Artifacts) {
		t.Fatalf("duplicate destinations in merged plan: %v", plan.Artifacts)
	}
	// shared text encoders appear exactly once
	if !got["clip/clip_l.safetensors"] || !got["clip/t5xxl_fp8_e4m3fn.safetensors"] {
		t.Fatalf("shared text encoders missing from superset plan")
	}
	// superset covers every per-set artifact
	for _, set := range types.AllModelSets() {
		if set == types.ModelSetAll {
			continue
		}
		sub, err := Resolve(set)
		if err != nil {
			t.Fatalf("resolve %s: %v", set, err)
		}
		for _, a := range sub.Artifacts {
			if !got[a.Dest] {
				t.Fatalf("superset missing %s from %s", a.Dest, set)
			}
		}
	}
}

func TestResolveRejectsUnknownSelector(t *testing.T) {
	if _, err := Resolve(types.ModelSet("sd1.5")); err == nil {
		t.Fatalf("expected error for unknown selector")
	}
}

func TestResolveSharedEncodersForDependentSets(t *testing.T) {
	for _, set := range []types.ModelSet{types.ModelSetFluxSchnell, types.ModelSetFluxDev} {
		plan, err := Resolve(set)
		if err != nil {
			t.Fatalf("resolve %s: %v", set, err)
		}
		got := destSet(plan)
		if !got["clip/clip_l.safetensors"] || !got["clip/t5xxl_fp8_e4m3fn.safetensors"] {
			t.Fatalf("%s missing shared text encoders: %v", set, plan.Artifacts)
		}
	}
}

func TestEnsureLayoutCreatesAllFamilies(t *testing.T) {
	for _, set := range types.AllModelSets() {
		root := t.TempDir()
		plan, err := Resolve(set)
		if err != nil {
			t.Fatalf("resolve %s: %v", set, err)
		}
		if err := EnsureLayout(root, plan); err != nil {
			t.Fatalf("layout %s: %v", set, err)
		}
		// every family dir exists even when the selector stages nothing in it
		for _, f := range types.AllFamilies() {
			fi, err := os.Stat(filepath.Join(root, string(f)))
			if err != nil || !fi.IsDir() {
				t.Fatalf("set %s: family dir %s missing", set, f)
			}
		}
	}
}

func TestCatalogDestsLiveUnderFamilyDirs(t *testing.T) {
	for set, specs := range catalog {
		for _, a := range specs {
			if !strings.HasPrefix(a.Dest, string(a.Family)+"/") {
				t.Fatalf("set %s: dest %q not under family %q", set, a.Dest, a.Family)
			}
		}
	}
}
