package forecast

import (
	"math"
	"sort"
	"time"
)

// design describes the regression feature layout for one fit: piecewise
// linear trend columns, Fourier seasonal columns at the granularity's
// yearly period, and one indicator column per holiday name observed in
// the training window.
type design struct {
	n      int
	period float64

	// Changepoint positions in normalized time, uniformly spread over
	// the first ChangepointRange share of the training range
	changepoints []float64

	// Fourier harmonics, capped so the highest frequency stays below
	// the Nyquist limit of the bucket spacing
	order int

	// Holiday names retained for fitting (sorted) and every occurrence
	// bucket index per name, including occurrences beyond the training
	// range so future predictions can activate them
	names  []string
	occ    map[string][]int
	window int
}

func newDesign(n int, g Granularity, start time.Time, holidays []HolidayEvent, opts FitOptions) *design {
	d := &design{
		n:            n,
		period:       g.Period(),
		changepoints: changepointGrid(n, opts),
		window:       opts.HolidayWindow,
	}

	d.order = opts.FourierOrder
	if nyquist := int((d.period - 1) / 2); d.order > nyquist {
		d.order = nyquist
	}
	if d.order < 0 {
		d.order = 0
	}

	d.occ = make(map[string][]int)
	for _, ev := range holidays {
		idx := g.Index(start, g.BucketStart(ev.Date))
		d.occ[ev.Name] = append(d.occ[ev.Name], idx)
	}
	for name, idxs := range d.occ {
		for _, idx := range idxs {
			if idx+d.window >= 0 && idx-d.window <= n-1 {
				d.names = append(d.names, name)
				break
			}
		}
	}
	sort.Strings(d.names)

	return d
}

// changepointGrid places trend changepoint candidates uniformly across
// the first ChangepointRange share of normalized time
func changepointGrid(n int, opts FitOptions) []float64 {
	count := opts.MaxChangepoints
	if limit := int(opts.ChangepointRange*float64(n)) - 1; count > limit {
		count = limit
	}
	if count < 1 {
		return nil
	}

	grid := make([]float64, count)
	for j := 0; j < count; j++ {
		grid[j] = opts.ChangepointRange * float64(j+1) / float64(count+1)
	}
	return grid
}

func (d *design) trendWidth() int    { return 2 + len(d.changepoints) }
func (d *design) fourierWidth() int  { return 2 * d.order }
func (d *design) holidayWidth() int  { return len(d.names) }
func (d *design) seasonalWidth() int { return d.fourierWidth() + d.holidayWidth() }

// tNorm maps a bucket index into normalized time; indices beyond the
// training range map past 1.0, which extrapolates the trend linearly
func (d *design) tNorm(i int) float64 {
	den := float64(d.n - 1)
	if den <= 0 {
		den = 1
	}
	return float64(i) / den
}

// trendRow fills row with the trend features for bucket index i:
// intercept, slope, and one hinge per changepoint
func (d *design) trendRow(row []float64, i int) {
	t := d.tNorm(i)
	row[0] = 1
	row[1] = t
	for j, cp := range d.changepoints {
		if t > cp {
			row[2+j] = t - cp
		} else {
			row[2+j] = 0
		}
	}
}

// seasonalRow fills row with the Fourier harmonics followed by the
// holiday indicators for bucket index i
func (d *design) seasonalRow(row []float64, i int) {
	for k := 1; k <= d.order; k++ {
		phase := 2 * math.Pi * float64(k) * float64(i) / d.period
		row[2*(k-1)] = math.Sin(phase)
		row[2*(k-1)+1] = math.Cos(phase)
	}
	base := d.fourierWidth()
	for j, name := range d.names {
		if d.holidayActive(name, i) {
			row[base+j] = 1
		} else {
			row[base+j] = 0
		}
	}
}

func (d *design) holidayActive(name string, i int) bool {
	for _, idx := range d.occ[name] {
		if i >= idx-d.window && i <= idx+d.window {
			return true
		}
	}
	return false
}

// penalties returns the ridge penalty per column for the combined
// [trend | fourier | holiday] layout. Strengths scale the inverse
// penalty: a more flexible component gets a smaller penalty.
func (d *design) penalties(params HyperparameterSet) []float64 {
	const basePenalty = 1e-8

	p := make([]float64, d.trendWidth()+d.seasonalWidth())
	p[0] = basePenalty
	p[1] = basePenalty
	for j := range d.changepoints {
		p[2+j] = 1 / params.TrendFlexibility
	}
	off := d.trendWidth()
	for j := 0; j < d.fourierWidth(); j++ {
		p[off+j] = 1 / params.SeasonalityStrength
	}
	off += d.fourierWidth()
	for j := 0; j < d.holidayWidth(); j++ {
		p[off+j] = 1 / params.HolidayStrength
	}
	return p
}
