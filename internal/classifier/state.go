package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrModelStateNotFound is returned when state.json is missing.
var ErrModelStateNotFound = errors.New("classifier model state not found")

// ModelState tracks which model version is active under a base dir, and the
// previous one kept for rollback.
type ModelState struct {
	CurrentVersion  string `json:"current_version"`
	PreviousVersion string `json:"previous_version,omitempty"`
}

func stateFilePath(baseDir string) string {
	return filepath.Join(baseDir, "state.json")
}

// LoadModelState reads <model_dir>/state.json.
func LoadModelState(baseDir string) (ModelState, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return ModelState{}, errors.New("baseDir is empty")
	}

	data, err := os.ReadFile(stateFilePath(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return ModelState{}, ErrModelStateNotFound
		}
		return ModelState{}, fmt.Errorf("read model state: %w", err)
	}

	var state ModelState
	if err := json.Unmarshal(data, &state); err != nil {
		return ModelState{}, fmt.Errorf("decode model state: %w", err)
	}
	return state, nil
}

// SaveModelState writes <model_dir>/state.json atomically.
func SaveModelState(baseDir string, state ModelState) error {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return errors.New("baseDir is empty")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create model base dir: %w", err)
	}

	state.CurrentVersion = strings.TrimSpace(state.CurrentVersion)
	state.PreviousVersion = strings.TrimSpace(state.PreviousVersion)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model state: %w", err)
	}

	tmpFile, err := os.CreateTemp(baseDir, "state.json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), stateFilePath(baseDir)); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// ResolveActiveDir picks the directory holding the model file: either baseDir
// itself (flat layout) or the version subdirectory named by state.json, with
// the previous version as rollback when the current one is broken.
func ResolveActiveDir(baseDir string) (string, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return "", errors.New("baseDir is empty")
	}

	if modelFilePresent(baseDir) {
		return baseDir, nil
	}

	state, err := LoadModelState(baseDir)
	if err != nil {
		if errors.Is(err, ErrModelStateNotFound) {
			return "", fmt.Errorf("no model file or state.json under %s", baseDir)
		}
		return "", err
	}

	if state.CurrentVersion != "" {
		dir := filepath.Join(baseDir, state.CurrentVersion)
		if modelFilePresent(dir) {
			return dir, nil
		}
	}
	if state.PreviousVersion != "" {
		dir := filepath.Join(baseDir, state.PreviousVersion)
		if modelFilePresent(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no usable model version under %s (current=%q previous=%q)",
		baseDir, state.CurrentVersion, state.PreviousVersion)
}

func modelFilePresent(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ModelFileName))
	return err == nil
}

// DecideStartup determines how the process proceeds when model loading
// failed. Pure so it can be tested without an onnxruntime install.
func DecideStartup(loadErr error, require bool) (mode string, err error) {
	if loadErr == nil {
		return "ml", nil
	}
	if require {
		return "", fmt.Errorf("classifier required but unavailable: %w", loadErr)
	}
	return "degraded", nil
}
