package validation

// Recorder receives run measurements (pkg/metrics.Manager 가 구현)
type Recorder interface {
	ObserveStep(model string, step int, rmse float64)
	ObserveMean(column string, mean float64)
	ImportanceFailed(model string)
}

// NopRecorder discards every measurement
type NopRecorder struct{}

func (NopRecorder) ObserveStep(string, int, float64) {}
func (NopRecorder) ObserveMean(string, float64) {}
func (NopRecorder) ImportanceFailed(string) {}
