package tracker

// idGenerator hands out incremental track IDs starting from 1
type idGenerator struct {
	id int
}

// next returns the next ID
func (g *idGenerator) next() int {
	g.id++
	return g.id
}

// reset restarts numbering from 1
func (g *idGenerator) reset() {
	g.id = 0
}
