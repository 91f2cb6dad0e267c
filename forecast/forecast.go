package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/finlens-org/finlens/dataset"
	"github.com/finlens-org/finlens/executor"
)

// ============================================================================
// FORECASTING — Linear trend + seasonal decomposition
// ============================================================================
// Monthly totals are fit with a least-squares line; monthly seasonal factors
// (mean detrended training value per calendar slot) are layered on top.
// The series is split into train/test so the accuracy
// numbers in the explanation are out-of-sample. A simple statistical model,
// not ML: predictions assume historical trends continue.
// ============================================================================

var (
	// ErrMissingRole means the dataset lacks a date or amount column.
	ErrMissingRole = errors.New("forecast: need both amount and date columns")

	// ErrInsufficientData means fewer than four months of history.
	ErrInsufficientData = errors.New("forecast: need at least 4 months of data")
)

const minMonths = 4

// Metrics reports out-of-sample accuracy and the fitted line.
type Metrics struct {
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
	MAPE      float64 `json:"mape"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Model is a complete forecast: fitted history, predicted months with 95%
// confidence bounds, accuracy metrics, and a narrative explanation.
type Model struct {
	Historical  *dataset.Table `json:"historical"`
	Forecast    *dataset.Table `json:"forecast"`
	Metrics     Metrics        `json:"metrics"`
	Explanation string         `json:"explanation"`
	Direction   string         `json:"trend_direction"`
	PeakMonth   string         `json:"peak_seasonal_month"`
}

// Monthly forecasts total monthly transaction value `months` ahead.
func Monthly(t *dataset.Table, roles dataset.RoleMap, months int) (*Model, error) {
	amountCol := roles.Col(dataset.RoleAmount)
	dateCol := roles.Col(dataset.RoleDate)
	if amountCol == "" || dateCol == "" || !t.HasColumn(amountCol) || !t.HasColumn(dateCol) {
		return nil, ErrMissingRole
	}

	labels, values := monthlySum(t, dateCol, amountCol)
	if len(values) < minMonths {
		return nil, ErrInsufficientData
	}
	n := len(values)

	// Train on the first 80%, hold out the rest; always keep at least 3
	// training points so the line is meaningful.
	splitIdx := int(float64(n) * 0.8)
	if splitIdx < 3 {
		splitIdx = 3
	}
	train := values[:splitIdx]
	test := values[splitIdx:]

	slope, intercept := polyfit(train)

	fitted := make([]float64, n+months)
	for i := range fitted {
		fitted[i] = slope*float64(i) + intercept
	}

	// Seasonal factors from the detrended training slots (12-month cycle).
	factors := seasonalFactors(train, slope, intercept)
	for i := range fitted {
		fitted[i] += factors[i%12]
	}

	residuals := make([]float64, splitIdx)
	for i := range residuals {
		residuals[i] = train[i] - fitted[i]
	}
	residualStd := 0.0
	if len(residuals) > 1 {
		residualStd = popStd(residuals)
	}

	m := Metrics{
		TrainSize: splitIdx,
		TestSize:  n - splitIdx,
		Slope:     round2(slope),
		Intercept: round2(intercept),
	}
	if len(test) > 0 {
		var sq, abs, pct float64
		for i, actual := range test {
			err := actual - fitted[splitIdx+i]
			sq += err * err
			abs += math.Abs(err)
			pct += math.Abs(err) / math.Max(actual, 1)
		}
		m.RMSE = round2(math.Sqrt(sq / float64(len(test))))
		m.MAE = round2(abs / float64(len(test)))
		m.MAPE = round2(pct / float64(len(test)) * 100)
	} else {
		var sq, abs float64
		for _, r := range residuals {
			sq += r * r
			abs += math.Abs(r)
		}
		m.RMSE = round2(math.Sqrt(sq / float64(len(residuals))))
		m.MAE = round2(abs / float64(len(residuals)))
	}

	hist := dataset.New(
		[]string{"Month", "Actual", "Trend", "Seasonal", "Fitted", "Split"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber, dataset.ColNumber, dataset.ColNumber, dataset.ColText},
	)
	for i := 0; i < n; i++ {
		split := "Train"
		if i >= splitIdx {
			split = "Test"
		}
		hist.AppendRow(dataset.Str(labels[i]), dataset.Num(values[i]),
			dataset.Num(slope*float64(i)+intercept), dataset.Num(factors[i%12]),
			dataset.Num(fitted[i]), dataset.Str(split))
	}

	fc := dataset.New(
		[]string{"Month", "Predicted", "Lower (95%)", "Upper (95%)"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber, dataset.ColNumber},
	)
	futureTotal := 0.0
	for i := 0; i < months; i++ {
		pred := fitted[n+i]
		futureTotal += pred
		fc.AppendRow(dataset.Str(nextMonthLabel(labels[n-1], i+1)),
			dataset.Num(round2(pred)),
			dataset.Num(round2(pred-1.96*residualStd)),
			dataset.Num(round2(pred+1.96*residualStd)))
	}

	direction, trendDesc := "downward", fmt.Sprintf("decreasing by approximately %s per month", executor.FormatCurrency(math.Abs(slope)))
	if slope > 0 {
		direction = "upward"
		trendDesc = fmt.Sprintf("increasing by approximately %s per month", executor.FormatCurrency(math.Abs(slope)))
	}
	peak := monthName(argmax(factors))

	mapePart := ""
	if m.MAPE > 0 {
		mapePart = fmt.Sprintf(", MAPE = **%.1f%%**", m.MAPE)
	}
	explanation := fmt.Sprintf(
		"**Forecast Model**: Linear trend + seasonal decomposition.\n\n"+
			"**Trend**: The data shows an **%s** trend, %s.\n\n"+
			"**Seasonality**: Peak activity occurs in **%s** based on historical patterns.\n\n"+
			"**Accuracy**: RMSE = **%s**, MAE = **%s**%s. Trained on **%d** months, tested on **%d** months.\n\n"+
			"**Next %d months**: Predicted total = **%s**.\n\n"+
			"*This is a simple statistical model, not ML. Predictions assume historical trends continue.*",
		direction, trendDesc, peak,
		executor.FormatCurrency(m.RMSE), executor.FormatCurrency(m.MAE), mapePart,
		m.TrainSize, m.TestSize, months, executor.FormatCurrency(futureTotal))

	return &Model{
		Historical:  hist,
		Forecast:    fc,
		Metrics:     m,
		Explanation: explanation,
		Direction:   direction,
		PeakMonth:   peak,
	}, nil
}

// Volume forecasts monthly transaction counts with a plain linear fit.
func Volume(t *dataset.Table, roles dataset.RoleMap, months int) (*Model, error) {
	dateCol := roles.Col(dataset.RoleDate)
	if dateCol == "" || !t.HasColumn(dateCol) {
		return nil, ErrMissingRole
	}

	labels, values := monthlyCount(t, dateCol)
	if len(values) < minMonths {
		return nil, ErrInsufficientData
	}
	n := len(values)

	slope, intercept := polyfit(values)

	hist := dataset.New(
		[]string{"Month", "Count"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber},
	)
	for i := 0; i < n; i++ {
		hist.AppendRow(dataset.Str(labels[i]), dataset.Num(values[i]))
	}

	fc := dataset.New(
		[]string{"Month", "Predicted Volume"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber},
	)
	for i := 0; i < months; i++ {
		pred := math.Round(slope*float64(n+i) + intercept)
		fc.AppendRow(dataset.Str(nextMonthLabel(labels[n-1], i+1)), dataset.Num(pred))
	}

	direction := "declining"
	if slope > 0 {
		direction = "growing"
	}
	explanation := fmt.Sprintf(
		"Transaction volume is **%s** at approximately **%s** per month based on linear trend.",
		direction, executor.FormatNumber(math.Abs(slope)))

	return &Model{
		Historical:  hist,
		Forecast:    fc,
		Metrics:     Metrics{Slope: round2(slope), Intercept: round2(intercept), TrainSize: n},
		Explanation: explanation,
		Direction:   direction,
	}, nil
}

// ── series construction ─────────────────────────────────────────────────────

// monthlySum aggregates the amount column per calendar month of the date
// column, returning sorted month labels and their totals.
func monthlySum(t *dataset.Table, dateCol, amountCol string) ([]string, []float64) {
	sums := make(map[string]float64)
	dates := t.Column(dateCol)
	amounts := t.Column(amountCol)
	for i, d := range dates {
		if d.IsNull() || amounts[i].IsNull() {
			continue
		}
		sums[dataset.MonthLabel(d.Time)] += amounts[i].Float()
	}
	return sortedSeries(sums)
}

func monthlyCount(t *dataset.Table, dateCol string) ([]string, []float64) {
	counts := make(map[string]float64)
	for _, d := range t.Column(dateCol) {
		if d.IsNull() {
			continue
		}
		counts[dataset.MonthLabel(d.Time)]++
	}
	return sortedSeries(counts)
}

func sortedSeries(m map[string]float64) ([]string, []float64) {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	values := make([]float64, len(labels))
	for i, l := range labels {
		values[i] = m[l]
	}
	return labels, values
}

// nextMonthLabel steps a "2006-01" label forward by delta months.
func nextMonthLabel(last string, delta int) string {
	tm, err := time.Parse("2006-01", last)
	if err != nil {
		return last
	}
	return dataset.MonthLabel(tm.AddDate(0, delta, 0))
}

// ── numerics ────────────────────────────────────────────────────────────────

// polyfit fits y = slope*x + intercept over x = 0..n-1 by least squares.
func polyfit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if n < 2 {
		if n == 1 {
			return 0, values[0]
		}
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// seasonalFactors averages detrended training values per 12-month slot.
// With under a year of training data a slot holds at most one residual,
// which becomes that slot's factor; slots past the window stay zero.
func seasonalFactors(train []float64, slope, intercept float64) [12]float64 {
	var factors [12]float64
	for i := 0; i < 12; i++ {
		var total float64
		count := 0
		for j := i; j < len(train); j += 12 {
			total += train[j] - (slope*float64(j) + intercept)
			count++
		}
		if count > 0 {
			factors[i] = total / float64(count)
		}
	}
	return factors
}

// popStd is the population standard deviation (n denominator).
func popStd(vals []float64) float64 {
	n := float64(len(vals))
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / n)
}

func argmax(vals [12]float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

func monthName(idx int) string {
	names := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	if idx < 0 || idx >= len(names) {
		return "N/A"
	}
	return names[idx]
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
