package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact is a fitted classifier as exported by the training pipeline:
// ordered feature list, affine scaler, class label mapping and the
// decision function parameters. Read-only after loading.
type Artifact struct {
	Model struct {
		Type         string   `json:"type"` // "forest" or "logreg"
		Algorithm    string   `json:"algorithm"`
		Classes      []string `json:"classes"`
		FeatureNames []string `json:"feature_names"`
		Scaler       struct {
			Mean  []float64 `json:"mean"`
			Scale []float64 `json:"scale"`
		} `json:"scaler"`
		Weights struct {
			Bias         []float64   `json:"bias"`
			Coefficients [][]float64 `json:"coefficients"`
		} `json:"weights"`
		Trees []Tree `json:"trees"`
	} `json:"model"`
}

// Tree is one decision tree of a forest artifact, stored as a flat
// node array. Left/Right index into Nodes; a node with Left < 0 is a
// leaf and carries a class distribution in Value.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// LoadArtifact reads <dir>/<name>_latest.json and validates the parts
// every adapter relies on.
func LoadArtifact(dir, name string) (*Artifact, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_latest.json", name))
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", name, err)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", name, err)
	}
	return &artifact, nil
}

func (a *Artifact) validate() error {
	m := &a.Model
	if len(m.FeatureNames) == 0 {
		return fmt.Errorf("artifact missing feature names")
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("artifact missing class labels")
	}
	if len(m.Scaler.Mean) != len(m.FeatureNames) || len(m.Scaler.Scale) != len(m.FeatureNames) {
		return fmt.Errorf("scaler shape does not match %d features", len(m.FeatureNames))
	}

	switch m.Type {
	case "logreg":
		if len(m.Weights.Bias) != len(m.Classes) || len(m.Weights.Coefficients) != len(m.Classes) {
			return fmt.Errorf("weights shape does not match %d classes", len(m.Classes))
		}
		for i, row := range m.Weights.Coefficients {
			if len(row) != len(m.FeatureNames) {
				return fmt.Errorf("coefficient row %d does not match %d features", i, len(m.FeatureNames))
			}
		}
	case "forest":
		if len(m.Trees) == 0 {
			return fmt.Errorf("forest artifact has no trees")
		}
		for t, tree := range m.Trees {
			if len(tree.Nodes) == 0 {
				return fmt.Errorf("tree %d has no nodes", t)
			}
		}
	default:
		return fmt.Errorf("unknown model type %q", m.Type)
	}
	return nil
}
