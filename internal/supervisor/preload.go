package supervisor

import (
	"path/filepath"
	"sort"
)

// defaultPreloadDirs are the library locations scanned for an alternative
// memory allocator. A static optimization applied once before launch.
var defaultPreloadDirs = []string{
	"/usr/lib",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/usr/local/lib",
}

// DetectAllocator returns the path of a tcmalloc shared library to export
// via LD_PRELOAD, or "" when none is installed. The first match in scan
// order wins; matches within a directory are sorted for determinism.
func DetectAllocator(dirs ...string) string {
	if len(dirs) == 0 {
		dirs = defaultPreloadDirs
	}
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "libtcmalloc*.so*"))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0]
	}
	return ""
}
