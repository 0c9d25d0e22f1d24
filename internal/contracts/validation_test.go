package contracts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHorizon(t *testing.T) {
	h := DefaultHorizon()

	require.Len(t, h, 36)
	assert.Equal(t, TimeStep(2), h[0])
	assert.Equal(t, TimeStep(36), h[34])
	assert.Equal(t, TimeStep(39), h[35])
	assert.False(t, h.Contains(37))
	assert.NoError(t, h.Validate())
	assert.Equal(t, "2-36,39", h.String())
}

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Horizon
		wantErr bool
	}{
		{name: "range plus single", input: "2-4,7", want: Horizon{2, 3, 4, 7}},
		{name: "singles with spaces", input: " 5 , 6 ", want: Horizon{5, 6}},
		{name: "descending", input: "4,3", wantErr: true},
		{name: "duplicate", input: "2-4,4", wantErr: true},
		{name: "reversed range", input: "6-2", wantErr: true},
		{name: "garbage", input: "a-b", wantErr: true},
		{name: "runaway range", input: "2-3600000000", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHorizon(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSteps_RangeWidthCap(t *testing.T) {
	steps, err := ParseSteps(fmt.Sprintf("1-%d", MaxRangeSteps))
	require.NoError(t, err)
	assert.Len(t, steps, MaxRangeSteps)

	_, err = ParseSteps(fmt.Sprintf("1-%d", MaxRangeSteps+1))
	assert.ErrorContains(t, err, "spans more than")
}

func TestStepSet(t *testing.T) {
	set := NewStepSet(DefaultReportingSteps()...)

	assert.True(t, set.Has(37))
	assert.True(t, set.Has(39))
	assert.False(t, set.Has(36))
}

func TestScoreTable_AddSeries(t *testing.T) {
	table := NewScoreTable(Horizon{2, 3})

	require.NoError(t, table.AddSeries(ScoreSeries{Model: "linear", Steps: []TimeStep{2, 3}, Scores: []float64{1, 3}}))

	err := table.AddSeries(ScoreSeries{Model: "xgb", Steps: []TimeStep{3, 2}, Scores: []float64{1, 1}})
	assert.Error(t, err, "out-of-order steps must be rejected")

	err = table.AddColumn("linear", []float64{0, 0})
	assert.Error(t, err, "duplicate column must be rejected")

	err = table.AddColumn(EnsembleColumn, []float64{0})
	assert.Error(t, err, "short column must be rejected")

	v, ok := table.Value("linear", 3)
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	means := table.Means()
	require.Len(t, means, 1)
	assert.Equal(t, ColumnMean{Column: "linear", Mean: 2}, means[0])
}

func TestSplitBundle_Validate(t *testing.T) {
	valid := SplitBundle{
		TrainX:  Frame{Columns: []string{"a"}, Rows: [][]float64{{1}, {2}}},
		TrainY:  []float64{1, 2},
		TestX:   Frame{Columns: []string{"a"}, Rows: [][]float64{{3}}},
		TestY:   []float64{3},
		TestIDs: []string{"p1"},
	}
	assert.NoError(t, valid.Validate())

	broken := valid
	broken.TestIDs = nil
	assert.Error(t, broken.Validate())

	broken = valid
	broken.TestX = Frame{Columns: []string{"a", "b"}, Rows: [][]float64{{3, 4}}}
	assert.Error(t, broken.Validate())
}

func TestRankImportances(t *testing.T) {
	entries := RankImportances(map[string]float64{
		"age":     -2.5,
		"snaps":   4,
		"team=A":  0.5,
		"targets": 4,
	})

	require.Len(t, entries, 4)
	assert.Equal(t, "snaps", entries[0].Feature)
	assert.Equal(t, "targets", entries[1].Feature)
	assert.Equal(t, "team=A", entries[2].Feature)
	assert.Equal(t, "age", entries[3].Feature, "ranking is by signed value, not magnitude")

	snap := ImportanceSnapshot{Entries: entries}
	assert.Len(t, snap.Top(2), 2)
	assert.Len(t, snap.Top(10), 4)
}
