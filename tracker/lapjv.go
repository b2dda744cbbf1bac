package tracker

import (
	"errors"
)

// largeCost is used as the initial column minimum, it must be larger than
// any cost given to the solver
const largeCost = 1000000.0

// lapjv solves the dense linear assignment problem for a square n x n cost
// matrix using the Jonker-Volgenant algorithm.  On return x[i] is the column
// assigned to row i and y[j] is the row assigned to column j.
func lapjv(n int, cost [][]float64, x, y []int) error {

	if n == 0 {
		return nil
	}

	freeRows := make([]int, n)
	v := make([]float64, n)

	nFree := columnReduction(n, cost, freeRows, x, y, v)

	// at most two rounds of augmenting row reduction before augmentation
	for i := 0; i < 2 && nFree > 0; i++ {
		nFree = augmentingRowReduction(n, cost, nFree, freeRows, x, y, v)
	}

	if nFree > 0 {
		return augment(n, cost, nFree, freeRows, x, y, v)
	}

	return nil
}

// columnReduction performs column reduction and reduction transfer, returning
// the number of rows left unassigned which are recorded in freeRows
func columnReduction(n int, cost [][]float64, freeRows, x, y []int, v []float64) int {

	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		x[i] = -1
		v[i] = largeCost
		y[i] = 0
	}

	// assign each column to the row with its minimum cost
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost[i][j]; c < v[j] {
				v[j] = c
				y[j] = i
			}
		}
	}

	for i := 0; i < n; i++ {
		unique[i] = true
	}

	for j := n - 1; j >= 0; j-- {
		i := y[j]

		if x[i] < 0 {
			x[i] = j
		} else {
			unique[i] = false
			y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if x[i] < 0 {
			freeRows[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		// reduction transfer for rows holding a single column
		j := x[i]
		minVal := largeCost

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := cost[i][j2] - v[j2]; c < minVal {
				minVal = c
			}
		}

		v[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction tries to assign the free rows by finding the two
// smallest reduced costs per row, returning the rows still free
func augmentingRowReduction(n int, cost [][]float64, nFree int, freeRows,
	x, y []int, v []float64) int {

	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := freeRows[current]
		current++

		j1 := 0
		v1 := cost[freeI][0] - v[0]
		j2 := -1
		v2 := largeCost

		for j := 1; j < n; j++ {
			c := cost[freeI][j] - v[j]

			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := y[j1]
		v1New := v[j1] - (v2 - v1)
		v1Lowers := v1New < v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					freeRows[current] = i0
				} else {
					freeRows[newFree] = i0
					newFree++
				}
			}

		} else if i0 >= 0 {
			freeRows[newFree] = i0
			newFree++
		}

		x[freeI] = j1
		y[j1] = freeI
	}

	return newFree
}

// findMinCols moves the columns with the minimum d[j] to the front of the
// TODO section of cols starting at lo and returns the end of the SCAN list
func findMinCols(n int, lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < n; k++ {
		j := cols[k]

		if d[j] <= mind {
			if d[j] < mind {
				hi = lo
				mind = d[j]
			}

			cols[k] = cols[hi]
			cols[hi] = j
			hi++
		}
	}

	return hi
}

// scanCols scans the SCAN columns [lo, hi) trying to decrease d of the TODO
// columns.  It returns a free column if one is reached at minimum distance,
// otherwise -1 with lo and hi advanced.  On early return lo and hi are left
// untouched so the caller still points at a minimum distance column.
func scanCols(n int, cost [][]float64, lo, hi *int, d []float64,
	cols, pred, y []int, v []float64) int {

	l, h := *lo, *hi

	for l != h {
		j := cols[l]
		l++
		i := y[j]
		mind := d[j]
		shift := cost[i][j] - v[j] - mind

		for k := h; k < n; k++ {
			j = cols[k]
			cred := cost[i][j] - v[j] - shift

			if cred < d[j] {
				d[j] = cred
				pred[j] = i

				if cred == mind {
					if y[j] < 0 {
						return j
					}

					cols[k] = cols[h]
					cols[h] = j
					h++
				}
			}
		}
	}

	*lo, *hi = l, h

	return -1
}

// findPath runs a single iteration of the modified Dijkstra shortest path
// search from row startI, returning the free column reached
func findPath(n int, cost [][]float64, startI int, y []int, v []float64,
	pred []int) int {

	lo := 0
	hi := 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for i := 0; i < n; i++ {
		cols[i] = i
		pred[i] = startI
		d[i] = cost[startI][i] - v[i]
	}

	for finalJ == -1 {
		// no columns left on the SCAN list
		if lo == hi {
			nReady = lo
			hi = findMinCols(n, lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = scanCols(n, cost, &lo, &hi, d, cols, pred, y, v)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		v[j] += d[j] - mind
	}

	return finalJ
}

// augment assigns the remaining free rows along shortest augmenting paths
func augment(n int, cost [][]float64, nFree int, freeRows,
	x, y []int, v []float64) error {

	pred := make([]int, n)

	for _, freeI := range freeRows[:nFree] {

		i := -1
		k := 0

		j := findPath(n, cost, freeI, y, v, pred)

		if j < 0 || j >= n {
			return errors.New("augmenting path ended outside of cost matrix")
		}

		for i != freeI {
			i = pred[j]
			y[j] = i
			j, x[i] = x[i], j
			k++

			if k > n {
				return errors.New("augmenting path did not terminate")
			}
		}
	}

	return nil
}
