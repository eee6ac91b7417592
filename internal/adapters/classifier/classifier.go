// Package classifier loads trained binary classifiers for the fraud
// ensemble. Models are exported from the training pipeline either as JSON
// (random forest trees or logistic regression weights) or as ONNX graphs.
package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/docrisk/internal/domain/ensemble"
)

// Formats accepted by Load.
const (
	FormatForest   = "forest"
	FormatLogistic = "logistic"
	FormatONNX     = "onnx"
)

// Load reads the model at path. features overrides the feature list stored
// in JSON models and is required for ONNX models.
func Load(format, path string, features []string, opts ...ONNXOption) (ensemble.Classifier, error) {
	switch format {
	case FormatForest:
		var f Forest
		if err := readJSON(path, &f); err != nil {
			return nil, err
		}
		if len(features) > 0 {
			f.FeatureNames = features
		}
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &f, nil
	case FormatLogistic:
		var l Logistic
		if err := readJSON(path, &l); err != nil {
			return nil, err
		}
		if len(features) > 0 {
			l.FeatureNames = features
		}
		if err := l.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &l, nil
	case FormatONNX:
		return NewONNX(path, features, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidModel, path, err)
	}
	return nil
}
