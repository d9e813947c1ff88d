package whisper

import (
	"fmt"
	"os"
	"path/filepath"
)

// ModelSize selects one of the pretrained English whisper.cpp model files.
type ModelSize string

const (
	// ModelTiny is ~75 MB — fastest, lowest quality.
	ModelTiny ModelSize = "tiny"

	// ModelBase is ~142 MB — a good speed/quality balance for live use.
	ModelBase ModelSize = "base"

	// ModelSmall is ~466 MB — better quality at higher latency.
	ModelSmall ModelSize = "small"
)

// IsValid reports whether s is a recognised model size.
func (s ModelSize) IsValid() bool {
	switch s {
	case ModelTiny, ModelBase, ModelSmall:
		return true
	}
	return false
}

// Filename returns the ggml model file name for this size.
func (s ModelSize) Filename() string {
	return fmt.Sprintf("ggml-%s.en.bin", s)
}

// DownloadURL returns the upstream location of the model file. Downloading
// is an installer concern; this engine only checks for presence.
func (s ModelSize) DownloadURL() string {
	return "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/" + s.Filename()
}

// DefaultModelDir returns the per-user directory where model files are
// expected when no explicit directory is configured.
func DefaultModelDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("whisper: resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "meetscribe", "models"), nil
}

// ModelPath returns the full path of the model file for size under dir.
func ModelPath(dir string, size ModelSize) string {
	return filepath.Join(dir, size.Filename())
}

// ModelExists reports whether the model artifact for size is present under
// dir. Model acquisition is out-of-band; callers that need the model and find
// it absent should fail fast.
func ModelExists(dir string, size ModelSize) bool {
	info, err := os.Stat(ModelPath(dir, size))
	return err == nil && !info.IsDir()
}
