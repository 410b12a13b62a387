// Package sudoku provides the operators needed to solve 9x9 Sudoku puzzles
// with the optimizers in internal/opt.
//
// A candidate is a fully filled Grid that keeps every clue of its Puzzle.
// Fitness counts distinct values per row, column and box, so a solved grid
// scores MaxFitness.
package sudoku

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	// Size is the side length of the grid.
	Size = 9
	// Box is the side length of one sub-grid.
	Box = 3
	// MaxFitness is the fitness of a solved grid: 27 units of 9 distinct values.
	MaxFitness = 3 * Size * Size
)

// Grid holds cell values row by row. 0 marks an empty cell.
type Grid [Size][Size]int

// Puzzle is a grid of clues. Candidates never change a clue cell.
type Puzzle struct {
	clues Grid
	free  [][2]int
}

// NewPuzzle validates the clue values and returns a puzzle.
func NewPuzzle(clues Grid) (*Puzzle, error) {
	p := &Puzzle{clues: clues}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			v := clues[r][c]
			if v < 0 || v > Size {
				return nil, fmt.Errorf("cell (%d,%d): value %d out of range", r, c, v)
			}
			if v == 0 {
				p.free = append(p.free, [2]int{r, c})
			}
		}
	}
	return p, nil
}

// DefaultPuzzle returns the classic 30-clue demonstration puzzle.
func DefaultPuzzle() *Puzzle {
	p, _ := NewPuzzle(Grid{
		{5, 3, 0, 0, 7, 0, 0, 0, 0},
		{6, 0, 0, 1, 9, 5, 0, 0, 0},
		{0, 9, 8, 0, 0, 0, 0, 6, 0},
		{8, 0, 0, 0, 6, 0, 0, 0, 3},
		{4, 0, 0, 8, 0, 3, 0, 0, 1},
		{7, 0, 0, 0, 2, 0, 0, 0, 6},
		{0, 6, 0, 0, 0, 0, 2, 8, 0},
		{0, 0, 0, 4, 1, 9, 0, 0, 5},
		{0, 0, 0, 0, 8, 0, 0, 7, 9},
	})
	return p
}

// Parse reads 81 cells from s. Digits 1-9 are values, '0' and '.' are empty
// cells; whitespace and the separators '|', '-' and '+' are ignored.
func Parse(s string) (Grid, error) {
	var g Grid
	n := 0
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9', ch == '.':
			if n == Size*Size {
				return Grid{}, fmt.Errorf("more than %d cells", Size*Size)
			}
			if ch != '.' {
				g[n/Size][n%Size] = int(ch - '0')
			}
			n++
		case ch == ' ', ch == '\t', ch == '\n', ch == '\r', ch == '|', ch == '-', ch == '+':
		default:
			return Grid{}, fmt.Errorf("unexpected character %q", ch)
		}
	}
	if n != Size*Size {
		return Grid{}, fmt.Errorf("expected %d cells, got %d", Size*Size, n)
	}
	return g, nil
}

// String renders the grid as nine lines of space-separated digits, with '.'
// for empty cells.
func (g Grid) String() string {
	var b strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			if g[r][c] == 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte(byte('0' + g[r][c]))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Clues returns the puzzle's clue grid.
func (p *Puzzle) Clues() Grid {
	return p.clues
}

// IsClue reports whether the cell at (r, c) is fixed by the puzzle.
func (p *Puzzle) IsClue(r, c int) bool {
	return p.clues[r][c] != 0
}

// Free returns the number of cells the solver may change.
func (p *Puzzle) Free() int {
	return len(p.free)
}

// Respects reports whether g keeps every clue of the puzzle.
func (p *Puzzle) Respects(g Grid) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if p.clues[r][c] != 0 && g[r][c] != p.clues[r][c] {
				return false
			}
		}
	}
	return true
}

// Fitness counts distinct values in every row, column and box. Empty cells
// do not count.
func Fitness(g Grid) (float64, error) {
	score := 0
	for i := 0; i < Size; i++ {
		var row, col [Size + 1]bool
		for j := 0; j < Size; j++ {
			row[g[i][j]] = true
			col[g[j][i]] = true
		}
		score += distinct(row) + distinct(col)
	}
	for br := 0; br < Size; br += Box {
		for bc := 0; bc < Size; bc += Box {
			var box [Size + 1]bool
			for r := br; r < br+Box; r++ {
				for c := bc; c < bc+Box; c++ {
					box[g[r][c]] = true
				}
			}
			score += distinct(box)
		}
	}
	return float64(score), nil
}

func distinct(seen [Size + 1]bool) int {
	n := 0
	for _, ok := range seen[1:] {
		if ok {
			n++
		}
	}
	return n
}

// IsSolved reports whether g is a complete valid solution.
func IsSolved(g Grid) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c] == 0 {
				return false
			}
		}
	}
	f, _ := Fitness(g)
	return f == MaxFitness
}

// Neighborhood returns every grid that differs from g in one free cell.
func (p *Puzzle) Neighborhood(g Grid) ([]Grid, error) {
	out := make([]Grid, 0, len(p.free)*(Size-1))
	for _, cell := range p.free {
		r, c := cell[0], cell[1]
		for v := 1; v <= Size; v++ {
			if g[r][c] == v {
				continue
			}
			n := g
			n[r][c] = v
			out = append(out, n)
		}
	}
	return out, nil
}

// NewIndividual fills every free cell with a uniformly random value.
func (p *Puzzle) NewIndividual(rng *rand.Rand) (Grid, error) {
	g := p.clues
	for _, cell := range p.free {
		g[cell[0]][cell[1]] = rng.Intn(Size) + 1
	}
	return g, nil
}

// Crossover swaps the rows below a random cut point between the parents.
func (p *Puzzle) Crossover(a, b Grid, rng *rand.Rand) (Grid, Grid, error) {
	cut := rng.Intn(Size-1) + 1
	c1, c2 := a, b
	for r := cut; r < Size; r++ {
		c1[r], c2[r] = b[r], a[r]
	}
	return c1, c2, nil
}

// Mutate reassigns one to three random free cells.
func (p *Puzzle) Mutate(g Grid, rng *rand.Rand) (Grid, error) {
	if len(p.free) == 0 {
		return g, nil
	}
	for k := rng.Intn(3) + 1; k > 0; k-- {
		cell := p.free[rng.Intn(len(p.free))]
		g[cell[0]][cell[1]] = rng.Intn(Size) + 1
	}
	return g, nil
}
