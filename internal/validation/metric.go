package validation

import (
	"fmt"
	"math"
)

// RMSE root-mean-squared error
// sqrt(mean((pred_i - truth_i)^2)), 길이가 다르거나 비어 있으면 오류
func RMSE(pred, truth []float64) (float64, error) {
	if len(pred) != len(truth) {
		return 0, fmt.Errorf("rmse: %d predictions vs %d truths", len(pred), len(truth))
	}
	if len(pred) == 0 {
		return 0, fmt.Errorf("rmse: empty input")
	}

	var sum float64
	for i := range pred {
		d := pred[i] - truth[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pred))), nil
}
