package classifier

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	defaultONNXInput  = "float_input"
	defaultONNXOutput = "probabilities"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// InitRuntime loads the onnxruntime shared library once per process. An
// empty path lets the library use its platform default.
func InitRuntime(libraryPath string) error {
	runtimeOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		runtimeErr = ort.InitializeEnvironment()
	})
	return runtimeErr
}

// ShutdownRuntime releases the onnxruntime environment.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNXOption configures an ONNX classifier.
type ONNXOption func(*ONNX)

// WithIONames overrides the graph input and probability output names.
func WithIONames(input, output string) ONNXOption {
	return func(o *ONNX) {
		if input != "" {
			o.input = input
		}
		if output != "" {
			o.output = output
		}
	}
}

// ONNX runs a converted scikit-learn classifier whose probability output has
// shape [1, 2] (zipmap disabled).
type ONNX struct {
	features []string
	input    string
	output   string

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNX opens a session on the model at path. InitRuntime must have been
// called.
func NewONNX(path string, features []string, opts ...ONNXOption) (*ONNX, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: onnx models need an explicit feature list", ErrInvalidModel)
	}
	if !ort.IsInitialized() {
		return nil, ErrRuntimeNotReady
	}
	o := &ONNX{features: features, input: defaultONNXInput, output: defaultONNXOutput}
	for _, opt := range opts {
		opt(o)
	}
	s, err := ort.NewDynamicAdvancedSession(path, []string{o.input}, []string{o.output}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx session %s: %w", path, err)
	}
	o.session = s
	return o, nil
}

// Features implements ensemble.Classifier.
func (o *ONNX) Features() []string { return o.features }

// PredictNonFraud runs the graph on one row and returns the class-1
// probability.
func (o *ONNX) PredictNonFraud(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(o.features) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(o.features))
	}
	data := make([]float32, len(x))
	for i, v := range x {
		data[i] = float32(v)
	}
	in, err := ort.NewTensor(ort.NewShape(1, int64(len(data))), data)
	if err != nil {
		return 0, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		return 0, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()

	o.mu.Lock()
	err = o.session.Run([]ort.Value{in}, []ort.Value{out})
	o.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}
	return float64(out.GetData()[1]), nil
}

// Close releases the session.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}
