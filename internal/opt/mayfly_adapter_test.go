package opt

import (
	"context"
	"errors"
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) (float64, error) {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(20, 42, nil)

	dim := 3
	res, err := optimizer.Search(context.Background(), sphere, -10, 10, dim, SearchOptions{MaxIterations: 100})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(res.Solution) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(res.Solution))
	}

	// Should converge close to zero
	if res.Fitness > 0.1 {
		t.Errorf("Expected cost near 0, got %f", res.Fitness)
	}

	for i, v := range res.Solution {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}

	if res.Termination != TerminationBudget {
		t.Errorf("Expected termination %q, got %q", TerminationBudget, res.Termination)
	}
}

func TestMayflyAdapterMaximize(t *testing.T) {
	negSphere := func(x []float64) (float64, error) {
		f, err := sphere(x)
		return -f, err
	}

	res, err := NewMayfly(20, 7, nil).Search(context.Background(), negSphere, -5, 5, 2, SearchOptions{MaxIterations: 100, Maximize: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Fitness > 0 || res.Fitness < -0.1 {
		t.Errorf("Expected fitness just below 0, got %f", res.Fitness)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	opts := SearchOptions{MaxIterations: 50}

	// Run twice with same seed (popSize must be >=20 for mayfly v0.1.0)
	res1, err := NewMayfly(20, 123, nil).Search(context.Background(), sphere, -5, 5, 2, opts)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	res2, err := NewMayfly(20, 123, nil).Search(context.Background(), sphere, -5, 5, 2, opts)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if res1.Fitness != res2.Fitness {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", res1.Fitness, res2.Fitness)
	}
}

func TestMayflyAdapterErrors(t *testing.T) {
	ctx := context.Background()
	opts := SearchOptions{MaxIterations: 10}

	if _, err := NewMayfly(10, 1, nil).Search(ctx, sphere, -1, 1, 2, opts); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected config error for small population, got %v", err)
	}
	if _, err := NewMayfly(20, 1, nil).Search(ctx, sphere, 1, -1, 2, opts); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected config error for inverted bounds, got %v", err)
	}

	boom := errors.New("boom")
	failing := func([]float64) (float64, error) { return 0, boom }
	if _, err := NewMayfly(20, 1, nil).Search(ctx, failing, -1, 1, 2, opts); !errors.Is(err, boom) {
		t.Errorf("Expected fitness error to propagate, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewMayfly(20, 1, nil).Search(cancelled, sphere, -1, 1, 2, opts); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
