// Package tsp provides travelling salesman instances and the tour operators
// used to solve them with the optimizers in internal/opt.
package tsp

import (
	"fmt"
	"math"
	"math/rand"
)

// Metric selects how distances between cities are measured.
type Metric string

const (
	// Euclidean uses the planar X/Y coordinates.
	Euclidean Metric = "euclidean"
	// Haversine uses great-circle distance in kilometres from Lat/Lon.
	Haversine Metric = "haversine"
)

const earthRadiusKm = 6371.0

// City is a stop of the tour. X/Y are planar coordinates, Lat/Lon are
// degrees and only used by the Haversine metric.
type City struct {
	Name string  `json:"name,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Lat  float64 `json:"lat,omitempty"`
	Lon  float64 `json:"lon,omitempty"`
}

// Tour is a permutation of city indices. The tour returns from the last
// city to the first.
type Tour []int

// Instance is a symmetric TSP instance with a precomputed distance matrix.
type Instance struct {
	Cities []City
	Metric Metric
	dist   [][]float64
}

// NewInstance precomputes all pairwise distances.
func NewInstance(cities []City, metric Metric) (*Instance, error) {
	if len(cities) < 2 {
		return nil, fmt.Errorf("need at least 2 cities, got %d", len(cities))
	}
	var d func(a, b City) float64
	switch metric {
	case Euclidean, "":
		metric, d = Euclidean, euclidean
	case Haversine:
		d = haversine
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	dist := make([][]float64, len(cities))
	for i := range dist {
		dist[i] = make([]float64, len(cities))
	}
	for i := range cities {
		for j := i + 1; j < len(cities); j++ {
			dist[i][j] = d(cities[i], cities[j])
			dist[j][i] = dist[i][j]
		}
	}
	return &Instance{Cities: cities, Metric: metric, dist: dist}, nil
}

func euclidean(a, b City) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func haversine(a, b City) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Len returns the number of cities.
func (in *Instance) Len() int {
	return len(in.Cities)
}

// Distance returns the distance between cities i and j.
func (in *Instance) Distance(i, j int) float64 {
	return in.dist[i][j]
}

// TourLength returns the length of the closed tour. The tour must be valid.
func (in *Instance) TourLength(t Tour) float64 {
	total := 0.0
	for i := range t {
		total += in.dist[t[i]][t[(i+1)%len(t)]]
	}
	return total
}

// ValidateTour checks that t visits every city exactly once.
func (in *Instance) ValidateTour(t Tour) error {
	if len(t) != len(in.Cities) {
		return fmt.Errorf("tour has %d stops, instance has %d cities", len(t), len(in.Cities))
	}
	seen := make([]bool, len(t))
	for _, c := range t {
		if c < 0 || c >= len(t) {
			return fmt.Errorf("city index %d out of range", c)
		}
		if seen[c] {
			return fmt.Errorf("city %d visited twice", c)
		}
		seen[c] = true
	}
	return nil
}

// Objective is the tour length, to be minimized.
func (in *Instance) Objective(t Tour) (float64, error) {
	if err := in.ValidateTour(t); err != nil {
		return 0, err
	}
	return in.TourLength(t), nil
}

// Fitness is the negated tour length, for the maximizing evolutionary
// algorithms.
func (in *Instance) Fitness(t Tour) (float64, error) {
	l, err := in.Objective(t)
	return -l, err
}

// SwapNeighborhood returns every tour obtained by exchanging two stops.
func SwapNeighborhood(t Tour) ([]Tour, error) {
	n := len(t)
	out := make([]Tour, 0, n*(n-1)/2)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			nb := append(Tour(nil), t...)
			nb[i], nb[j] = nb[j], nb[i]
			out = append(out, nb)
		}
	}
	return out, nil
}

// TwoOptNeighborhood returns every tour obtained by reversing one segment
// that does not include the first stop.
func TwoOptNeighborhood(t Tour) ([]Tour, error) {
	n := len(t)
	var out []Tour
	for i := 1; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			nb := append(Tour(nil), t...)
			for a, b := i, j; a < b; a, b = a+1, b-1 {
				nb[a], nb[b] = nb[b], nb[a]
			}
			out = append(out, nb)
		}
	}
	return out, nil
}

// RandomTour returns a factory of uniformly random tours over n cities.
func RandomTour(n int) func(rng *rand.Rand) (Tour, error) {
	return func(rng *rand.Rand) (Tour, error) {
		return Tour(rng.Perm(n)), nil
	}
}

// OrderCrossover is OX1: each child keeps a random slice of one parent and
// fills the remaining stops in the order they appear in the other.
func OrderCrossover(a, b Tour, rng *rand.Rand) (Tour, Tour, error) {
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("order crossover: parents have %d and %d stops", len(a), len(b))
	}
	n := len(a)
	if n < 2 {
		return append(Tour(nil), a...), append(Tour(nil), b...), nil
	}
	i, j := rng.Intn(n), rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	return orderFill(a, b, i, j), orderFill(b, a, i, j), nil
}

func orderFill(keep, fill Tour, i, j int) Tour {
	n := len(keep)
	child := make(Tour, n)
	used := make(map[int]bool, j-i+1)
	for k := i; k <= j; k++ {
		child[k] = keep[k]
		used[keep[k]] = true
	}
	pos := (j + 1) % n
	for k := 0; k < n; k++ {
		c := fill[(j+1+k)%n]
		if used[c] {
			continue
		}
		child[pos] = c
		pos = (pos + 1) % n
	}
	return child
}

// SwapMutation exchanges two random stops.
func SwapMutation(t Tour, rng *rand.Rand) (Tour, error) {
	out := append(Tour(nil), t...)
	if len(out) < 2 {
		return out, nil
	}
	i, j := rng.Intn(len(out)), rng.Intn(len(out))
	out[i], out[j] = out[j], out[i]
	return out, nil
}

// RandomCities places n cities uniformly on the map area.
func RandomCities(n int, rng *rand.Rand) []City {
	cities := make([]City, n)
	for i := range cities {
		cities[i] = City{
			Name: fmt.Sprintf("c%d", i),
			X:    rng.Float64() * mapWidth,
			Y:    rng.Float64() * mapHeight,
		}
	}
	return cities
}
