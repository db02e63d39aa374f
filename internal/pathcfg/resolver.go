// Package pathcfg generates the merged model-search configuration consumed
// by the inference server at startup, and the diagnostic listings emitted
// before launch.
package pathcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"comfyd/pkg/types"
)

// Resolver merges the in-image baked models root with an optional mounted
// volume root.
type Resolver struct {
	BakedRoot  string
	VolumeRoot string // empty when no volume is mounted for this deployment
}

// Build produces the search-root description. Every family is listed even
// when its baked directory is empty; the volume root is listed without
// checking it exists (absence is non-fatal and only explains empty results
// downstream).
func (r Resolver) Build() types.PathConfig {
	return types.PathConfig{
		BakedRoot:  r.BakedRoot,
		VolumeRoot: r.VolumeRoot,
		Families:   types.AllFamilies(),
	}
}

// section is one named search root in the server's config file format.
type section struct {
	BasePath    string `yaml:"base_path"`
	Checkpoints string `yaml:"checkpoints"`
	VAE         string `yaml:"vae"`
	UNet        string `yaml:"unet"`
	CLIP        string `yaml:"clip"`
}

func newSection(root string) section {
	return section{
		BasePath:    root,
		Checkpoints: string(types.FamilyCheckpoints) + "/",
		VAE:         string(types.FamilyVAE) + "/",
		UNet:        string(types.FamilyUNet) + "/",
		CLIP:        string(types.FamilyCLIP) + "/",
	}
}

// WriteYAML writes the configuration file at path. The baked section comes
// first so in-image artifacts win the search order.
func WriteYAML(path string, cfg types.PathConfig) error {
	doc := map[string]section{
		"comfyd_baked": newSection(cfg.BakedRoot),
	}
	if cfg.VolumeRoot != "" {
		doc["comfyd_volume"] = newSection(cfg.VolumeRoot)
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal path config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("path config dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write path config: %w", err)
	}
	return nil
}
