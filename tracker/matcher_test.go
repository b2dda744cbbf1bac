package tracker

import (
	"testing"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(coords ...int) []detect.Centroid {
	res := make([]detect.Centroid, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		res = append(res, detect.Centroid{X: coords[i], Y: coords[i+1]})
	}
	return res
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 30.0, Distance(detect.Centroid{160, 120}, detect.Centroid{130, 120}), 1e-9)
	assert.InDelta(t, 5.0, Distance(detect.Centroid{0, 0}, detect.Centroid{3, 4}), 1e-9)
}

func TestGreedyMatch(t *testing.T) {

	tests := []struct {
		name     string
		prev     []detect.Centroid
		cur      []detect.Centroid
		expected []int
	}{
		{"no previous", nil, pts(10, 10), []int{-1}},
		{"no current", pts(10, 10), nil, []int{}},
		{"nearest", pts(0, 0, 100, 0), pts(90, 0, 5, 0), []int{1, 0}},
		{"tie keeps first", pts(0, 0, 10, 0), pts(5, 0), []int{0}},
		{"shared match", pts(100, 0, 160, 0), pts(140, 0, 170, 0), []int{1, 1}},
		{"no gate", pts(0, 0), pts(5000, 5000), []int{0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Greedy{}.Match(tc.prev, tc.cur)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestAssignmentMatch(t *testing.T) {

	tests := []struct {
		name     string
		gate     float64
		prev     []detect.Centroid
		cur      []detect.Centroid
		expected []int
	}{
		{"no previous", 150, nil, pts(10, 10), []int{-1}},
		{"swapped order", 150, pts(100, 100, 200, 100), pts(195, 100, 105, 100), []int{1, 0}},
		{"exclusive", 150, pts(100, 0, 160, 0), pts(140, 0, 170, 0), []int{0, 1}},
		{"gated out", 150, pts(0, 0), pts(200, 0), []int{-1}},
		{"gate picks near", 50, pts(0, 0, 300, 0), pts(10, 0), []int{0}},
		{"more current than previous", 150, pts(100, 100), pts(400, 400, 110, 100, 600, 100), []int{-1, 0, -1}},
		{"more previous than current", 150, pts(10, 10, 100, 100, 300, 300), pts(98, 103), []int{1}},
		{"one slot two claimants", 150, pts(100, 0), pts(90, 0, 120, 0), []int{0, -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Assignment{MaxDistance: tc.gate}.Match(tc.prev, tc.cur)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}
