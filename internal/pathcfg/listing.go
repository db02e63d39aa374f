package pathcfg

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// ListTree logs the tree under root with humanized file sizes. It is an
// observability aid for operators diagnosing missing-model problems: a
// missing root logs a warning and returns nil rather than failing the
// startup sequence.
func ListTree(logger zerolog.Logger, root string) error {
	if _, err := os.Stat(root); err != nil {
		logger.Warn().Str("path", root).Err(err).Msg("directory not present, skipping listing")
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("listing error")
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			logger.Info().Str("dir", rel).Msg("ls")
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			logger.Warn().Str("file", rel).Err(ierr).Msg("ls")
			return nil
		}
		logger.Info().Str("file", rel).Str("size", humanize.Bytes(uint64(info.Size()))).Msg("ls")
		return nil
	})
}

// DumpFile logs the contents of a small config file line by line, the way
// the startup sequence prints the resolved path configuration.
func DumpFile(logger zerolog.Logger, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("cannot read file for dump")
		return
	}
	logger.Info().Str("path", path).Str("contents", string(b)).Msg("resolved config")
}
