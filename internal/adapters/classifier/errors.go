package classifier

import "errors"

// Model loading and prediction errors.
var (
	ErrInvalidModel    = errors.New("invalid model")
	ErrFeatureCount    = errors.New("feature vector length does not match model")
	ErrUnknownFormat   = errors.New("unknown model format")
	ErrRuntimeNotReady = errors.New("onnx runtime not initialised")
)
