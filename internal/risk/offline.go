package risk

import (
	"math"

	"github.com/emberalert/fire-risk/internal/model"
)

// Fire danger thresholds (NWCG guidance).
const (
	TempHighF     = 85.0
	HumidityLowPc = 30.0
	WindHighMph   = 15.0
)

const sigmoidSlope = 5.0

// conditionRisk encodes sky conditions as a numeric risk contribution.
var conditionRisk = map[string]float64{
	"Clear":        0.8,
	"Clouds":       0.5,
	"Rain":         0.1,
	"Drizzle":      0.2,
	"Thunderstorm": 0.3,
	"Snow":         0.0,
}

// OfflineFeatures is the full feature set the ETL pipeline derives per
// observation. Temporal fields come from the observation's recorded
// timestamp, not the wall clock.
type OfflineFeatures struct {
	TempRisk      float64
	HumidityRisk  float64
	WindRisk      float64
	CompositeRisk float64

	Month     int
	Hour      int
	DayOfYear int

	IsFireSeason            bool
	TempHumidityInteraction float64
	WindTempInteraction     float64
	ConditionRisk           float64
}

// BuildOffline engineers the ETL feature set from a raw observation.
func BuildOffline(obs model.Observation) OfflineFeatures {
	f := OfflineFeatures{
		TempRisk:     NormalizeRisk(obs.Temperature, TempHighF, true),
		HumidityRisk: NormalizeRisk(obs.Humidity, HumidityLowPc, false),
		WindRisk:     NormalizeRisk(obs.WindSpeed, WindHighMph, true),
	}

	f.CompositeRisk = 0.4*f.TempRisk + 0.3*f.HumidityRisk + 0.3*f.WindRisk

	ts := obs.Timestamp
	f.Month = int(ts.Month())
	f.Hour = ts.Hour()
	f.DayOfYear = ts.YearDay()

	// June through October is peak fire season in California.
	f.IsFireSeason = f.Month >= 6 && f.Month <= 10

	f.TempHumidityInteraction = f.TempRisk * f.HumidityRisk
	f.WindTempInteraction = f.WindRisk * f.TempRisk

	if r, ok := conditionRisk[obs.Conditions]; ok {
		f.ConditionRisk = r
	} else {
		f.ConditionRisk = 0.5
	}

	return f
}

// NormalizeRisk maps a measurement onto [0,1] with a sigmoid centered on the
// danger threshold: values at the threshold score 0.5, values far past it
// approach 1 (or 0 when low values are the dangerous ones).
func NormalizeRisk(value, threshold float64, higherIsRiskier bool) float64 {
	var normalized float64
	if higherIsRiskier {
		normalized = (value - threshold) / threshold
	} else {
		normalized = (threshold - value) / threshold
	}
	r := 1 / (1 + math.Exp(-sigmoidSlope*normalized))
	return Clamp01(r)
}
