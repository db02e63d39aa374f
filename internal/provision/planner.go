package provision

import (
	"fmt"
	"path/filepath"

	"comfyd/internal/common/fsutil"
	"comfyd/pkg/types"
)

// Resolve evaluates the catalog for one selector and returns the frozen
// provisioning plan. An artifact is included when its owning set equals the
// selector, or the selector is the superset token. Destinations shared
// between sets (text encoders) are deduplicated when "all" merges them.
func Resolve(set types.ModelSet) (types.Plan, error) {
	if _, err := types.ParseModelSet(string(set)); err != nil {
		return types.Plan{}, err
	}
	plan := types.Plan{Set: set, Families: types.AllFamilies()}
	seen := make(map[string]bool)
	for _, owner := range types.AllModelSets() {
		if owner == types.ModelSetAll {
			continue
		}
		if set != owner && set != types.ModelSetAll {
			continue
		}
		for _, a := range catalog[owner] {
			if seen[a.Dest] {
				continue
			}
			seen[a.Dest] = true
			plan.Artifacts = append(plan.Artifacts, a)
		}
	}
	if err := validate(plan); err != nil {
		return types.Plan{}, err
	}
	return plan, nil
}

// validate enforces dest uniqueness and family/dest agreement.
func validate(plan types.Plan) error {
	dests := make(map[string]bool, len(plan.Artifacts))
	for _, a := range plan.Artifacts {
		if dests[a.Dest] {
			return fmt.Errorf("duplicate destination in plan: %s", a.Dest)
		}
		dests[a.Dest] = true
		if filepath.Dir(a.Dest) != string(a.Family) {
			return fmt.Errorf("artifact %s not under its family dir %s", a.Dest, a.Family)
		}
	}
	return nil
}

// EnsureLayout creates every family directory under root before any fetch
// is attempted, so a partially matching selector never leaves a missing
// directory.
func EnsureLayout(root string, plan types.Plan) error {
	dirs := make([]string, 0, len(plan.Families))
	for _, f := range plan.Families {
		dirs = append(dirs, filepath.Join(root, string(f)))
	}
	return fsutil.EnsureDirs(dirs...)
}
