package classifier

import (
	"context"
	"fmt"
)

// Tree is one decision tree in the array layout scikit-learn uses:
// node i splits on Feature[i] at Threshold[i]; ChildrenLeft[i] == -1 marks a
// leaf whose Value[i] holds per-class sample weights.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest averages the class-1 probability of its trees.
type Forest struct {
	FeatureNames []string `json:"features"`
	Trees        []Tree   `json:"trees"`
}

// Features implements ensemble.Classifier.
func (f *Forest) Features() []string { return f.FeatureNames }

// PredictNonFraud returns the mean class-1 probability over all trees.
func (f *Forest) PredictNonFraud(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(f.FeatureNames) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(f.FeatureNames))
	}
	var sum float64
	for i := range f.Trees {
		p, err := f.Trees[i].predict(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	return sum / float64(len(f.Trees)), nil
}

func (t *Tree) predict(x []float64) (float64, error) {
	node := 0
	for steps := 0; t.ChildrenLeft[node] != -1; steps++ {
		if steps > len(t.ChildrenLeft) {
			return 0, fmt.Errorf("%w: cycle in tree", ErrInvalidModel)
		}
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	v := t.Value[node]
	total := v[0] + v[1]
	if total <= 0 {
		return 0, fmt.Errorf("%w: empty leaf %d", ErrInvalidModel, node)
	}
	return v[1] / total, nil
}

func (f *Forest) validate() error {
	if len(f.FeatureNames) == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	for i, t := range f.Trees {
		n := len(t.ChildrenLeft)
		if n == 0 || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return fmt.Errorf("%w: tree %d has ragged node arrays", ErrInvalidModel, i)
		}
		for j := range n {
			if len(t.Value[j]) != 2 {
				return fmt.Errorf("%w: tree %d node %d is not binary", ErrInvalidModel, i, j)
			}
			if t.ChildrenLeft[j] == -1 {
				continue
			}
			if t.ChildrenLeft[j] < 0 || t.ChildrenLeft[j] >= n || t.ChildrenRight[j] < 0 || t.ChildrenRight[j] >= n {
				return fmt.Errorf("%w: tree %d node %d has an out of range child", ErrInvalidModel, i, j)
			}
			if t.Feature[j] < 0 || t.Feature[j] >= len(f.FeatureNames) {
				return fmt.Errorf("%w: tree %d node %d splits on unknown feature %d", ErrInvalidModel, i, j, t.Feature[j])
			}
		}
	}
	return nil
}
