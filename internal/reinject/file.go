package reinject

import (
	"fmt"
	"os"
	"path/filepath"

	"p3fes-translator/internal/extract"

	"github.com/rs/zerolog/log"
)

// BackupSuffix is appended to the original path for Safe-strategy backups.
const BackupSuffix = ".bak"

// ReinjectFile applies edits to the file at path. The new buffer is fully
// built and validated in memory, then swapped in with a temp-file rename, so
// a failed run never leaves a partial write. Safe keeps a backup copy next to
// the original and restores it when the post-write check fails.
func ReinjectFile(path string, edits []Edit, layout *extract.Layout, strategy Strategy) (*Result, error) {
	return ReinjectFileMirrored(path, "", edits, layout, strategy)
}

// ReinjectFileMirrored additionally writes the reinjected buffer to
// mirrorPath before the original is replaced, keeping a copy of the output
// independent of the source tree. An empty mirrorPath skips the mirror.
func ReinjectFileMirrored(path, mirrorPath string, edits []Edit, layout *extract.Layout, strategy Strategy) (*Result, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	res, err := Reinject(original, edits, layout, strategy)
	if err != nil {
		return nil, err
	}

	backup := res.Applied == Safe
	if backup {
		if err := os.WriteFile(path+BackupSuffix, original, 0644); err != nil {
			return nil, fmt.Errorf("write backup: %w", err)
		}
	}

	if mirrorPath != "" {
		if err := os.MkdirAll(filepath.Dir(mirrorPath), 0755); err != nil {
			return nil, fmt.Errorf("create mirror directory: %w", err)
		}
		if err := os.WriteFile(mirrorPath, res.Bytes, 0644); err != nil {
			return nil, fmt.Errorf("write mirror: %w", err)
		}
	}

	if err := replaceFile(path, res.Bytes); err != nil {
		return nil, err
	}

	if backup {
		written, err := os.ReadFile(path)
		if err != nil || !verify(written, edits, layout) {
			if restoreErr := os.Rename(path+BackupSuffix, path); restoreErr != nil {
				log.Error().Err(restoreErr).Str("path", path).Msg("Backup restore failed")
			}
			return nil, ErrVerificationFailed
		}
	}

	log.Info().
		Str("path", path).
		Str("strategy", res.Applied.String()).
		Int("edits", len(edits)).
		Int("truncations", len(res.Truncations)).
		Int("delta", res.Delta).
		Msg("File reinjected")

	return res, nil
}

// replaceFile swaps in the new content atomically via a temp file in the same
// directory.
func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
