package forecast

import (
	"github.com/finlens-org/finlens/dataset"
)

// Engine adapts the forecasting functions to the execution layer's
// Forecaster interface.
type Engine struct{}

// NewEngine returns a ready-to-wire forecasting engine.
func NewEngine() *Engine { return &Engine{} }

// ForecastMonthly runs the monthly value model and returns its historical
// and forecast tables with the narrative explanation.
func (e *Engine) ForecastMonthly(t *dataset.Table, roles dataset.RoleMap, months int) (*dataset.Table, *dataset.Table, string, error) {
	model, err := Monthly(t, roles, months)
	if err != nil {
		return nil, nil, "", err
	}
	return model.Historical, model.Forecast, model.Explanation, nil
}
