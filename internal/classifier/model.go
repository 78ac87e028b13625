// Package classifier wraps the pre-trained phishing model. The model is an
// opaque ONNX artifact: loaded once at startup, read-only for the process
// lifetime, and consumed strictly through Predict.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/phishguard/phishguard/internal/features"
)

// ModelFileName is the ONNX graph the loader expects inside a model dir.
// Graph contract: input "float_input" float32 [1,11]; output "label" int64
// [1] plus, when exported with probabilities, "probabilities" float32 [1,2].
const ModelFileName = "phishing_rf.onnx"

// Prediction is one classifier verdict. Probabilities is nil when the model
// was exported (or loaded) without the probabilities output.
type Prediction struct {
	Phishing      bool
	Probabilities *[2]float32
}

// Model owns the ONNX session and its preallocated tensors. The session is
// shared process-wide state; Predict serializes on an internal mutex so
// concurrent requests stay safe.
type Model struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	label   *ort.Tensor[int64]
	probs   *ort.Tensor[float32]

	mu sync.Mutex
}

// Options tunes model loading.
type Options struct {
	// Probabilities binds the optional probabilities output. Disable it for
	// models exported without one, or session creation fails.
	Probabilities bool
	// SharedLibraryPath overrides onnxruntime shared library discovery.
	SharedLibraryPath string
}

// Load initializes the ONNX runtime and builds a session over the model in
// modelDir.
func Load(modelDir string, opts Options) (*Model, error) {
	if modelDir == "" {
		return nil, errors.New("modelDir is empty")
	}

	libPath := opts.SharedLibraryPath
	if libPath == "" {
		libPath = resolveSharedLibraryPath(modelDir)
	}
	if libPath == "" {
		return nil, errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(modelDir, ModelFileName)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, features.Len))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	label, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return nil, fmt.Errorf("allocate label tensor: %w", err)
	}

	outputNames := []string{"label"}
	outputs := []ort.Value{label}
	var probs *ort.Tensor[float32]
	if opts.Probabilities {
		probs, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
		if err != nil {
			return nil, fmt.Errorf("allocate probabilities tensor: %w", err)
		}
		outputNames = append(outputNames, "probabilities")
		outputs = append(outputs, probs)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"float_input"},
		outputNames,
		[]ort.Value{input},
		outputs,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Model{
		session: session,
		input:   input,
		label:   label,
		probs:   probs,
	}, nil
}

// Predict runs one inference over the feature vector.
func (m *Model) Predict(v features.Vector) (Prediction, error) {
	if m == nil || m.session == nil {
		return Prediction{}, errors.New("classifier model not initialized")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), v.Floats())

	if err := m.session.Run(); err != nil {
		return Prediction{}, fmt.Errorf("onnx run: %w", err)
	}

	pred := Prediction{Phishing: m.label.GetData()[0] != 0}
	if m.probs != nil {
		raw := m.probs.GetData()
		if len(raw) >= 2 {
			p := [2]float32{raw[0], raw[1]}
			pred.Probabilities = &p
		}
	}
	return pred, nil
}

// resolveSharedLibraryPath attempts to locate a platform-specific onnxruntime
// shared library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common
// names/locations are probed, starting with the model dir itself.
func resolveSharedLibraryPath(modelDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		modelDir,
		filepath.Join(modelDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
