package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

const eulerGamma = 0.5772156649

// Config controls the isolation forest.
type Config struct {
	// Contamination is the expected share of outliers, in (0, 0.5].
	Contamination float64
	// Estimators is the number of trees.
	Estimators int
	// MaxSamples caps the per-tree subsample size.
	MaxSamples int
	// Seed fixes tree construction; equal seeds give equal scores.
	Seed uint64
	// Workers bounds fitting and scoring goroutines; <= 0 uses GOMAXPROCS.
	// It never changes results.
	Workers int
}

// DefaultConfig mirrors the usual isolation forest defaults with a fixed seed.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.10,
		Estimators:    100,
		MaxSamples:    256,
		Seed:          42,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if math.IsNaN(c.Contamination) || c.Contamination <= 0 || c.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", c.Contamination)
	}
	if c.Estimators <= 0 {
		return fmt.Errorf("estimators must be positive, got %d", c.Estimators)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("max samples must be positive, got %d", c.MaxSamples)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// node is either an internal split (left != nil) or a leaf holding size training points.
type node struct {
	feature     int
	split       float64
	left, right *node
	size        int
}

// Forest is a fitted isolation forest.
type Forest struct {
	cfg   Config
	trees []*node
	psi   int
	cols  int
}

// Fit grows cfg.Estimators isolation trees over the rows of x. Each tree draws from its
// own PCG stream keyed by (seed, tree index) so the result is independent of scheduling.
func Fit(ctx context.Context, x *mat.Dense, cfg Config) (*Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n, cols := x.Dims()
	if n == 0 || cols == 0 {
		return nil, errors.New("isolation forest needs at least one row and one column")
	}
	psi := min(cfg.MaxSamples, n)
	limit := int(math.Ceil(math.Log2(float64(max(psi, 2)))))

	f := &Forest{cfg: cfg, trees: make([]*node, cfg.Estimators), psi: psi, cols: cols}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i := range f.trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			sample := rng.Perm(n)[:psi]
			f.trees[i] = grow(x, sample, 0, limit, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

func grow(x *mat.Dense, idx []int, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(idx) <= 1 {
		return &node{size: len(idx)}
	}
	_, cols := x.Dims()
	lo := make([]float64, cols)
	hi := make([]float64, cols)
	for j := 0; j < cols; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, r := range idx {
		row := x.RawRowView(r)
		for j, v := range row {
			lo[j] = min(lo[j], v)
			hi[j] = max(hi[j], v)
		}
	}
	var candidates []int
	for j := 0; j < cols; j++ {
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(idx)}
	}
	feat := candidates[rng.IntN(len(candidates))]
	split := lo[feat] + rng.Float64()*(hi[feat]-lo[feat])

	var left, right []int
	for _, r := range idx {
		if x.At(r, feat) <= split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(idx)}
	}
	return &node{
		feature: feat,
		split:   split,
		left:    grow(x, left, depth+1, limit, rng),
		right:   grow(x, right, depth+1, limit, rng),
	}
}

// pathLength is the depth at which row lands plus the expected depth of the
// unbuilt subtree below its leaf.
func (n *node) pathLength(row []float64) float64 {
	depth := 0
	for n.left != nil {
		if row[n.feature] <= n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the mean unsuccessful search length in a binary search tree.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

// ScoreSamples returns one score per row of x: the negated anomaly score
// -2^(-E[h]/c(psi)), so lower means more anomalous.
func (f *Forest) ScoreSamples(ctx context.Context, x *mat.Dense) ([]float64, error) {
	n, cols := x.Dims()
	if cols != f.cols {
		return nil, fmt.Errorf("score: got %d columns, forest was fit on %d", cols, f.cols)
	}
	norm := averagePathLength(f.psi)
	if norm == 0 {
		norm = 1
	}
	scores := make([]float64, n)
	workers := f.cfg.workers()
	chunk := (n + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for r := start; r < end; r++ {
				if r%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				row := x.RawRowView(r)
				sum := 0.0
				for _, t := range f.trees {
					sum += t.pathLength(row)
				}
				mean := sum / float64(len(f.trees))
				scores[r] = -math.Pow(2, -mean/norm)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Threshold is the contamination percentile of scores, linearly interpolated.
// Rows scoring strictly below it are outliers.
func (f *Forest) Threshold(scores []float64) float64 {
	sorted := append([]float64(nil), scores...)
	slices.Sort(sorted)
	return quantile(sorted, f.cfg.Contamination)
}

// Predict labels each score: true for outliers.
func (f *Forest) Predict(scores []float64, threshold float64) []bool {
	out := make([]bool, len(scores))
	for i, s := range scores {
		out[i] = s < threshold
	}
	return out
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
