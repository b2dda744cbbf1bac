package tracker

import (
	"fmt"
	"math"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"gonum.org/v1/gonum/mat"
)

// Matcher associates the centroids observed in the current frame with the
// centroids of previously seen tracks
type Matcher interface {
	// Match returns a slice the length of cur where each value is the index
	// into prev of the matched centroid or -1 when there is no match
	Match(prev, cur []detect.Centroid) ([]int, error)
}

// Distance returns the euclidean distance between two centroids
func Distance(a, b detect.Centroid) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// maxGate caps the assignment gate so padded costs stay well below the
// solver's largeCost
const maxGate = 100000.0

// Greedy matches every current centroid to its nearest previous centroid.
// The first previous centroid achieving the minimum distance wins and the
// same previous centroid may be matched by many current centroids.
type Greedy struct{}

// Match implements Matcher
func (Greedy) Match(prev, cur []detect.Centroid) ([]int, error) {

	res := make([]int, len(cur))

	for i, c := range cur {

		res[i] = -1
		best := math.Inf(1)

		for j, p := range prev {
			if d := Distance(c, p); d < best {
				best = d
				res[i] = j
			}
		}
	}

	return res, nil
}

// Assignment matches centroids by solving the minimum cost bipartite
// assignment over euclidean distance.  Every previous centroid is used at
// most once and pairs further apart than MaxDistance are never matched.
type Assignment struct {
	MaxDistance float64
}

// Match implements Matcher
func (a Assignment) Match(prev, cur []detect.Centroid) ([]int, error) {

	res := make([]int, len(cur))

	for i := range res {
		res[i] = -1
	}

	if len(prev) == 0 || len(cur) == 0 {
		return res, nil
	}

	costs := mat.NewDense(len(prev), len(cur), nil)

	for i, p := range prev {
		for j, c := range cur {
			costs.Set(i, j, Distance(p, c))
		}
	}

	limit := math.Min(a.MaxDistance, maxGate)

	rowsol, err := solveGated(costs, limit)

	if err != nil {
		return nil, fmt.Errorf("error solving assignment: %w", err)
	}

	for i, j := range rowsol {
		if j >= 0 && costs.At(i, j) <= limit {
			res[j] = i
		}
	}

	return res, nil
}

// solveGated solves the rectangular assignment for the cost matrix allowing
// rows and columns to stay unassigned.  The matrix is extended to a square
// of size rows+cols where leaving a row and a column unmatched costs limit,
// so no pair costing more than limit is chosen.  It returns the column
// assigned to each row or -1.
func solveGated(costs *mat.Dense, limit float64) ([]int, error) {

	nRows, nCols := costs.Dims()
	n := nRows + nCols

	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			switch {
			case i < nRows && j < nCols:
				ext[i][j] = costs.At(i, j)
			case i >= nRows && j >= nCols:
				ext[i][j] = 0
			default:
				ext[i][j] = limit / 2
			}
		}
	}

	x := make([]int, n)
	y := make([]int, n)

	if err := lapjv(n, ext, x, y); err != nil {
		return nil, err
	}

	rowsol := make([]int, nRows)

	for i := 0; i < nRows; i++ {
		rowsol[i] = x[i]

		if x[i] < 0 || x[i] >= nCols {
			rowsol[i] = -1
		}
	}

	return rowsol, nil
}
