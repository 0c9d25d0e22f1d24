package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/walkforward/internal/contracts"
)

// =============================================================================
// Registry Manifest (YAML)
// =============================================================================

// Manifest 모델 레지스트리 선언 파일
//
//	models:
//	  - name: xgb
//	    family: tree
//	    ensemble: true
//	    params: {rounds: 100, max_depth: 3}
//	  - name: linear
//	    family: linear
//	    ensemble: true
type Manifest struct {
	Models []ModelSpec `yaml:"models"`
}

// ModelSpec 모델 하나의 선언
type ModelSpec struct {
	Name     string      `yaml:"name"`
	Family   string      `yaml:"family"`
	Encoding string      `yaml:"encoding,omitempty"` // 비우면 계열 기본값
	Ensemble bool        `yaml:"ensemble,omitempty"`
	Params   ModelParams `yaml:"params,omitempty"`
}

// ModelParams 계열별 하이퍼파라미터 (0 값은 기본값 사용)
type ModelParams struct {
	Rounds         int      `yaml:"rounds,omitempty"`
	MaxDepth       int      `yaml:"max_depth,omitempty"`
	LearningRate   float64  `yaml:"learning_rate,omitempty"`
	MinSamplesLeaf int      `yaml:"min_samples_leaf,omitempty"`
	ImportanceType string   `yaml:"importance_type,omitempty"`
	Alpha          *float64 `yaml:"alpha,omitempty"`
}

// LoadManifest 파일에서 레지스트리 로드
func LoadManifest(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest YAML 바이트에서 레지스트리 생성
func ParseManifest(data []byte) (*Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse model manifest: %v", contracts.ErrConfigFault, err)
	}
	if len(m.Models) == 0 {
		return nil, fmt.Errorf("%w: model manifest declares no models", contracts.ErrConfigFault)
	}

	entries := make([]Entry, 0, len(m.Models))
	for _, spec := range m.Models {
		entry, err := spec.entry()
		if err != nil {
			return nil, fmt.Errorf("%w: model %q: %v", contracts.ErrConfigFault, spec.Name, err)
		}
		entries = append(entries, entry)
	}
	return NewRegistry(entries...)
}

// entry 선언을 레지스트리 항목으로 변환
func (s ModelSpec) entry() (Entry, error) {
	family, err := ParseFamily(s.Family)
	if err != nil {
		return Entry{}, err
	}

	encoding := family.DefaultEncoding()
	if s.Encoding != "" {
		if encoding, err = contracts.ParseEncoding(s.Encoding); err != nil {
			return Entry{}, err
		}
	}

	entry := Entry{
		Name:     s.Name,
		Family:   family,
		Encoding: encoding,
		Ensemble: s.Ensemble,
	}

	switch family {
	case FamilyTree:
		cfg := DefaultTreeConfig()
		if s.Params.Rounds > 0 {
			cfg.Rounds = s.Params.Rounds
		}
		if s.Params.MaxDepth > 0 {
			cfg.MaxDepth = s.Params.MaxDepth
		}
		if s.Params.LearningRate > 0 {
			cfg.LearningRate = s.Params.LearningRate
		}
		if s.Params.MinSamplesLeaf > 0 {
			cfg.MinSamplesLeaf = s.Params.MinSamplesLeaf
		}
		if s.Params.ImportanceType != "" {
			cfg.ImportanceType = s.Params.ImportanceType
		}
		if err := cfg.Validate(); err != nil {
			return Entry{}, err
		}
		entry.New = func() Regressor { return NewGradientBoostedTrees(cfg) }

	case FamilyLinear:
		cfg := DefaultLinearConfig()
		if s.Params.Alpha != nil {
			cfg.Alpha = *s.Params.Alpha
		}
		if cfg.Alpha < 0 {
			return Entry{}, fmt.Errorf("alpha must be non-negative, got %v", cfg.Alpha)
		}
		entry.New = func() Regressor { return NewRidgeRegression(cfg) }

	case FamilyBaseline:
		entry.New = func() Regressor { return NewMeanBaseline() }
	}

	return entry, nil
}
