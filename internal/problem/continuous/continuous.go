// Package continuous provides benchmark functions over real vectors and the
// operators to search them with the optimizers in internal/opt.
//
// All benchmark functions are minimized and have their optimum 0 at the
// origin.
package continuous

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Function is a benchmark objective with its conventional search bounds.
type Function struct {
	Name  string
	Lower float64
	Upper float64
	Eval  func([]float64) (float64, error)
}

var functions = map[string]Function{
	"sphere":    {Name: "sphere", Lower: -5.12, Upper: 5.12, Eval: Sphere},
	"rastrigin": {Name: "rastrigin", Lower: -5.12, Upper: 5.12, Eval: Rastrigin},
}

// Lookup returns the benchmark function with the given name.
func Lookup(name string) (Function, error) {
	f, ok := functions[name]
	if !ok {
		return Function{}, fmt.Errorf("unknown function %q (available: %v)", name, Names())
	}
	return f, nil
}

// Names lists the available benchmark functions.
func Names() []string {
	names := make([]string, 0, len(functions))
	for n := range functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sphere is sum(x_i^2).
func Sphere(x []float64) (float64, error) {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// Rastrigin is 10n + sum(x_i^2 - 10cos(2 pi x_i)).
func Rastrigin(x []float64) (float64, error) {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// Negate turns a minimized objective into a fitness to maximize.
func Negate(f func([]float64) (float64, error)) func([]float64) (float64, error) {
	return func(x []float64) (float64, error) {
		v, err := f(x)
		return -v, err
	}
}

// Neighborhood moves one coordinate by +/- step, clamped to [lower, upper].
// Moves that would leave a coordinate unchanged are dropped.
func Neighborhood(step, lower, upper float64) func([]float64) ([][]float64, error) {
	return func(x []float64) ([][]float64, error) {
		out := make([][]float64, 0, 2*len(x))
		for i, v := range x {
			for _, d := range [2]float64{-step, step} {
				nv := clamp(v+d, lower, upper)
				if nv == v {
					continue
				}
				nb := append([]float64(nil), x...)
				nb[i] = nv
				out = append(out, nb)
			}
		}
		return out, nil
	}
}

// RandomVector returns a factory of uniformly random vectors within bounds.
func RandomVector(dim int, lower, upper float64) func(rng *rand.Rand) ([]float64, error) {
	return func(rng *rand.Rand) ([]float64, error) {
		x := make([]float64, dim)
		for i := range x {
			x[i] = lower + rng.Float64()*(upper-lower)
		}
		return x, nil
	}
}

// BlendCrossover draws a random weight per coordinate and returns both convex
// combinations of the parents.
func BlendCrossover(a, b []float64, rng *rand.Rand) ([]float64, []float64, error) {
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("blend crossover: parents have %d and %d dimensions", len(a), len(b))
	}
	c1 := make([]float64, len(a))
	c2 := make([]float64, len(a))
	for i := range a {
		w := rng.Float64()
		c1[i] = w*a[i] + (1-w)*b[i]
		c2[i] = (1-w)*a[i] + w*b[i]
	}
	return c1, c2, nil
}

// GaussianMutation perturbs one random coordinate by N(0, sigma^2), clamped
// to [lower, upper].
func GaussianMutation(sigma, lower, upper float64) func([]float64, *rand.Rand) ([]float64, error) {
	return func(x []float64, rng *rand.Rand) ([]float64, error) {
		out := append([]float64(nil), x...)
		if len(out) == 0 {
			return out, nil
		}
		i := rng.Intn(len(out))
		out[i] = clamp(out[i]+rng.NormFloat64()*sigma, lower, upper)
		return out, nil
	}
}

func clamp(v, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, v))
}
