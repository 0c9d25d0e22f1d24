package report

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/wonny/walkforward/internal/contracts"
)

// renderScores 시점별 RMSE 선 그래프 (열마다 시리즈 하나)
func renderScores(table *contracts.ScoreTable, w io.Writer) error {
	if len(table.Steps) == 0 || len(table.Columns) == 0 {
		return fmt.Errorf("score table is empty")
	}

	xs := make([]float64, len(table.Steps))
	for i, step := range table.Steps {
		xs[i] = float64(step)
	}

	yMin, yMax := math.Inf(1), math.Inf(-1)
	series := make([]chart.Series, 0, len(table.Columns))
	for _, col := range table.Columns {
		ys := append([]float64(nil), table.Values[col]...)
		for _, y := range ys {
			yMin = math.Min(yMin, y)
			yMax = math.Max(yMax, y)
		}
		s := chart.ContinuousSeries{
			Name:    col,
			XValues: xs,
			YValues: ys,
		}
		if col == contracts.EnsembleColumn {
			s.Style = chart.Style{StrokeWidth: 3}
		}
		series = append(series, s)
	}

	// 값 범위가 0 이면 go-chart 가 렌더링을 거부하므로 여유를 둔다
	xMin, xMax := padRange(xs[0], xs[len(xs)-1])
	yMin, yMax = padRange(yMin, yMax)

	graph := chart.Chart{
		Title:  "Walk-forward RMSE by step",
		Width:  1024,
		Height: 512,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "step",
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  "RMSE",
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	return graph.Render(chart.PNG, w)
}

func padRange(lo, hi float64) (float64, float64) {
	if hi-lo < 1e-9 {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}
