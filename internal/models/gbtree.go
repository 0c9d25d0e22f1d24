package models

import (
	"fmt"
	"sort"

	"github.com/wonny/walkforward/internal/contracts"
)

// =============================================================================
// Gradient Boosted Regression Trees
// =============================================================================

// 피처 점수 종류
const (
	ImportanceWeight = "weight" // 분할 횟수
	ImportanceGain   = "gain"   // 분할 이득 합
)

// TreeConfig 부스팅 설정
type TreeConfig struct {
	Rounds         int     // 부스팅 라운드 수 (기본: 100)
	MaxDepth       int     // 트리 최대 깊이 (기본: 3)
	LearningRate   float64 // 학습률 (기본: 0.1)
	MinSamplesLeaf int     // 리프 최소 샘플 수 (기본: 5)
	ImportanceType string  // weight | gain
}

// DefaultTreeConfig 기본 부스팅 설정
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		Rounds:         100,
		MaxDepth:       3,
		LearningRate:   0.1,
		MinSamplesLeaf: 5,
		ImportanceType: ImportanceWeight,
	}
}

// Validate 설정 검증
func (c TreeConfig) Validate() error {
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", c.LearningRate)
	}
	if c.MinSamplesLeaf <= 0 {
		return fmt.Errorf("min_samples_leaf must be positive, got %d", c.MinSamplesLeaf)
	}
	if c.ImportanceType != ImportanceWeight && c.ImportanceType != ImportanceGain {
		return fmt.Errorf("importance_type must be %q or %q, got %q", ImportanceWeight, ImportanceGain, c.ImportanceType)
	}
	return nil
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// GradientBoostedTrees 제곱오차 그래디언트 부스팅 회귀
type GradientBoostedTrees struct {
	config TreeConfig

	columns []string
	base    float64
	trees   []*treeNode
	weight  map[string]float64
	gain    map[string]float64
	fitted  bool
}

// NewGradientBoostedTrees 부스팅 모델 생성
func NewGradientBoostedTrees(config TreeConfig) *GradientBoostedTrees {
	return &GradientBoostedTrees{config: config}
}

// Fit 전체 상태를 초기화하고 처음부터 학습
func (m *GradientBoostedTrees) Fit(X contracts.Frame, y []float64) error {
	if err := m.config.Validate(); err != nil {
		return err
	}
	if err := checkTrainingShape(X, y); err != nil {
		return err
	}

	m.fitted = false
	m.columns = append([]string(nil), X.Columns...)
	m.base = mean(y)
	m.trees = make([]*treeNode, 0, m.config.Rounds)
	m.weight = make(map[string]float64)
	m.gain = make(map[string]float64)

	n := X.NumRows()
	preds := make([]float64, n)
	for i := range preds {
		preds[i] = m.base
	}
	residual := make([]float64, n)
	idx := make([]int, n)

	for round := 0; round < m.config.Rounds; round++ {
		for i := range residual {
			residual[i] = y[i] - preds[i]
			idx[i] = i
		}

		tree := m.grow(X.Rows, residual, idx, 0)
		m.trees = append(m.trees, tree)

		for i, row := range X.Rows {
			preds[i] += m.config.LearningRate * tree.predict(row)
		}
	}

	m.fitted = true
	return nil
}

// grow 분산 감소가 최대인 분할을 재귀적으로 선택
func (m *GradientBoostedTrees) grow(rows [][]float64, target []float64, idx []int, depth int) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += target[i]
	}
	node := &treeNode{leaf: true, value: sum / float64(len(idx))}

	minLeaf := m.config.MinSamplesLeaf
	if depth >= m.config.MaxDepth || len(idx) < 2*minLeaf {
		return node
	}

	n := float64(len(idx))
	parentScore := sum * sum / n
	bestGain := 1e-12
	bestFeature, bestPos := -1, 0
	var bestOrder []int

	order := make([]int, len(idx))
	for f := range rows[idx[0]] {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return rows[order[a]][f] < rows[order[b]][f] })

		var left float64
		for k := 0; k < len(order)-minLeaf; k++ {
			left += target[order[k]]
			nl := k + 1
			if nl < minLeaf {
				continue
			}
			if rows[order[k]][f] == rows[order[k+1]][f] {
				continue
			}
			right := sum - left
			nr := len(order) - nl
			g := left*left/float64(nl) + right*right/float64(nr) - parentScore
			if g > bestGain {
				bestGain = g
				bestFeature = f
				bestPos = k
				bestOrder = append(bestOrder[:0], order...)
			}
		}
	}

	if bestFeature < 0 {
		return node
	}

	name := m.columns[bestFeature]
	m.weight[name]++
	m.gain[name] += bestGain

	lo := rows[bestOrder[bestPos]][bestFeature]
	hi := rows[bestOrder[bestPos+1]][bestFeature]
	node.leaf = false
	node.feature = bestFeature
	node.threshold = (lo + hi) / 2
	node.left = m.grow(rows, target, append([]int(nil), bestOrder[:bestPos+1]...), depth+1)
	node.right = m.grow(rows, target, append([]int(nil), bestOrder[bestPos+1:]...), depth+1)
	return node
}

// Predict 부스팅 합 예측
func (m *GradientBoostedTrees) Predict(X contracts.Frame) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredictShape(X, len(m.columns)); err != nil {
		return nil, err
	}

	preds := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		v := m.base
		for _, t := range m.trees {
			v += m.config.LearningRate * t.predict(row)
		}
		preds[i] = v
	}
	return preds, nil
}

// FeatureScores 분할에 사용된 피처별 점수 (사용되지 않은 피처는 제외)
func (m *GradientBoostedTrees) FeatureScores() (map[string]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	src := m.weight
	if m.config.ImportanceType == ImportanceGain {
		src = m.gain
	}
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}
