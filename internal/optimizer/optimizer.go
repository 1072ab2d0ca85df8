// Package optimizer computes the long-only, fully invested allocation that
// maximizes the annualized Sharpe ratio of the held tickers.
package optimizer

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/quotes"
)

const (
	TradingDays = 252

	DefaultRiskFreeRate  = 0.01
	DefaultTolerance     = 1e-9
	DefaultMaxIterations = 1000

	// volatility at or below this is treated as zero
	zeroVol = 1e-12
	// objective value for a zero-volatility portfolio
	penalty = 1e6

	armijo  = 1e-4
	maxStep = 10.0
	minStep = 1e-12
)

type Options struct {
	RiskFreeRate  float64
	Tolerance     float64
	MaxIterations int
}

func DefaultOptions() Options {
	return Options{
		RiskFreeRate:  DefaultRiskFreeRate,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Allocation is the optimal portfolio. Return and Volatility are annualized.
type Allocation struct {
	Weights    map[string]float64 `json:"weights"`
	Return     float64            `json:"return"`
	Volatility float64            `json:"volatility"`
	Sharpe     float64            `json:"sharpe"`
}

// Optimize aligns the close series on their common dates, estimates mean
// daily returns and their sample covariance, and solves
//
//	max (ret - rf) / vol  subject to  sum(w) = 1, 0 <= w <= 1
//
// by projected gradient ascent from equal weights.
func Optimize(series map[string][]quotes.Close, opts Options) (Allocation, error) {
	opts = opts.withDefaults()

	tickers, returns, err := alignReturns(series)
	if err != nil {
		return Allocation{}, err
	}

	p := newProblem(returns, opts.RiskFreeRate)
	w, err := p.solve(opts.Tolerance, opts.MaxIterations)
	if err != nil {
		return Allocation{}, err
	}

	ret, vol := p.stats(w)
	alloc := Allocation{
		Weights:    make(map[string]float64, len(tickers)),
		Return:     ret,
		Volatility: vol,
	}
	if vol > zeroVol {
		alloc.Sharpe = (ret - opts.RiskFreeRate) / vol
	}
	for i, t := range tickers {
		alloc.Weights[t] = w[i]
	}
	return alloc, nil
}

// alignReturns keeps only dates present in every series and converts the
// aligned closes to simple returns, one column per ticker.
func alignReturns(series map[string][]quotes.Close) ([]string, *mat.Dense, error) {
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("no tickers: %w", apperrors.ErrInsufficientHistory)
	}

	tickers := make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	prices := make([]map[string]float64, len(tickers))
	counts := make(map[string]int)
	for i, t := range tickers {
		prices[i] = make(map[string]float64, len(series[t]))
		for _, c := range series[t] {
			if c.Price <= 0 || math.IsNaN(c.Price) || math.IsInf(c.Price, 0) {
				continue
			}
			key := c.Date.Format(time.DateOnly)
			if _, dup := prices[i][key]; !dup {
				counts[key]++
			}
			prices[i][key] = c.Price
		}
	}

	var dates []string
	for key, n := range counts {
		if n == len(tickers) {
			dates = append(dates, key)
		}
	}
	sort.Strings(dates)

	rows := len(dates) - 1
	if rows < 2 {
		return nil, nil, fmt.Errorf("%d common return observations across %d tickers: %w",
			max(rows, 0), len(tickers), apperrors.ErrInsufficientHistory)
	}

	returns := mat.NewDense(rows, len(tickers), nil)
	for j := range tickers {
		for r := 0; r < rows; r++ {
			prev, cur := prices[j][dates[r]], prices[j][dates[r+1]]
			returns.Set(r, j, cur/prev-1)
		}
	}
	return tickers, returns, nil
}

type problem struct {
	mu  *mat.VecDense
	cov *mat.SymDense
	rf  float64
	n   int
}

func newProblem(returns *mat.Dense, rf float64) *problem {
	_, n := returns.Dims()
	mu := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		mu.SetVec(j, stat.Mean(mat.Col(nil, j, returns), nil))
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, returns, nil)
	return &problem{mu: mu, cov: &cov, rf: rf, n: n}
}

// stats returns the annualized return and volatility of w.
func (p *problem) stats(w []float64) (ret, vol float64) {
	wv := mat.NewVecDense(p.n, w)
	ret = TradingDays * mat.Dot(p.mu, wv)
	q := mat.Inner(wv, p.cov, wv)
	vol = math.Sqrt(TradingDays * math.Max(q, 0))
	return ret, vol
}

// objective is the negated Sharpe ratio.
func (p *problem) objective(w []float64) float64 {
	ret, vol := p.stats(w)
	if vol <= zeroVol {
		return penalty
	}
	return -(ret - p.rf) / vol
}

// gradient writes the gradient of objective at w into g.
func (p *problem) gradient(w, g []float64) {
	ret, vol := p.stats(w)
	if vol <= zeroVol {
		clear(g)
		return
	}
	wv := mat.NewVecDense(p.n, w)
	var sw mat.VecDense
	sw.MulVec(p.cov, wv)

	excess := ret - p.rf
	for i := range g {
		dVol := TradingDays * sw.AtVec(i) / vol
		dSharpe := (TradingDays*p.mu.AtVec(i)*vol - excess*dVol) / (vol * vol)
		g[i] = -dSharpe
	}
}

func (p *problem) solve(tol float64, maxIter int) ([]float64, error) {
	w := make([]float64, p.n)
	for i := range w {
		w[i] = 1 / float64(p.n)
	}
	f := p.objective(w)
	if math.IsNaN(f) {
		return nil, fmt.Errorf("objective is NaN at equal weights: %w", apperrors.ErrOptimizationDidNotConverge)
	}

	g := make([]float64, p.n)
	cand := make([]float64, p.n)
	step := 1.0
	for iter := 0; iter < maxIter; iter++ {
		p.gradient(w, g)

		t := step
		var fc float64
		for {
			for i := range cand {
				cand[i] = w[i] - t*g[i]
			}
			projectSimplex(cand)
			fc = p.objective(cand)
			if math.IsNaN(fc) {
				return nil, fmt.Errorf("objective is NaN at iteration %d: %w", iter, apperrors.ErrOptimizationDidNotConverge)
			}

			var decrease float64
			for i := range cand {
				decrease += g[i] * (cand[i] - w[i])
			}
			if fc <= f+armijo*decrease {
				break
			}
			t /= 2
			if t < minStep {
				copy(cand, w)
				fc = f
				break
			}
		}

		delta := math.Abs(f - fc)
		copy(w, cand)
		f = fc
		if delta < tol {
			return w, nil
		}
		step = math.Min(2*t, maxStep)
	}
	return nil, fmt.Errorf("no convergence after %d iterations: %w", maxIter, apperrors.ErrOptimizationDidNotConverge)
}

// projectSimplex replaces v with its Euclidean projection onto
// {w : sum(w) = 1, w >= 0}.
func projectSimplex(v []float64) {
	u := slices.Clone(v)
	slices.Sort(u)
	slices.Reverse(u)

	var cum, theta float64
	for j, x := range u {
		cum += x
		t := (cum - 1) / float64(j+1)
		if x-t > 0 {
			theta = t
		}
	}
	for i := range v {
		v[i] = math.Max(v[i]-theta, 0)
	}
}
