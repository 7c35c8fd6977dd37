package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Clinical defaults substituted for absent or unparseable vitals. The
// pipeline must never fail because of a missing vital, so normalization
// always produces a fully populated record.
const (
	DefaultMaternalHR    = 90.0
	DefaultSystolicBP    = 120.0
	DefaultDiastolicBP   = 80.0
	DefaultFetalHR       = 140.0
	DefaultFetalMovement = 10.0
	DefaultSpO2          = 98.0
	DefaultTemperature   = 36.8
	DefaultAge           = 25.0
	DefaultBloodSugar    = 90.0
)

// Vitals is a fully defaulted, numeric vitals record plus the features
// engineered from it. Read-only after normalization.
type Vitals struct {
	MaternalHR    float64
	SystolicBP    float64
	DiastolicBP   float64
	FetalHR       float64
	FetalMovement float64
	SpO2          float64
	Temperature   float64
	Age           float64
	BloodSugar    float64

	// Engineered features
	MAP           float64
	PulsePressure float64
}

// Canonical field names. The older demographic-only schema used
// heart_rate and glucose; those aliases map onto the canonical fields.
var aliases = map[string]string{
	"heart_rate": "maternal_hr",
	"glucose":    "bs",
}

// Normalize fills a raw field map into a complete Vitals record.
// String values that parse as numbers are coerced; anything else is
// treated as absent and replaced with its clinical default. Fields
// outside the recognized schema are discarded.
func Normalize(raw map[string]interface{}) Vitals {
	fields := map[string]float64{}
	for key, value := range raw {
		name := strings.ToLower(strings.TrimSpace(key))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if f, err := toFloat(value); err == nil {
			fields[name] = f
		}
	}

	v := Vitals{
		MaternalHR:    pick(fields, "maternal_hr", DefaultMaternalHR),
		SystolicBP:    pick(fields, "systolic_bp", DefaultSystolicBP),
		DiastolicBP:   pick(fields, "diastolic_bp", DefaultDiastolicBP),
		FetalHR:       pick(fields, "fetal_hr", DefaultFetalHR),
		FetalMovement: pick(fields, "fetal_movement_count", DefaultFetalMovement),
		SpO2:          pick(fields, "spo2", DefaultSpO2),
		Temperature:   pick(fields, "temperature", DefaultTemperature),
		Age:           pick(fields, "age", DefaultAge),
		BloodSugar:    pick(fields, "bs", DefaultBloodSugar),
	}

	v.MAP = (v.SystolicBP + 2*v.DiastolicBP) / 3
	v.PulsePressure = v.SystolicBP - v.DiastolicBP
	return v
}

// FeatureMap exposes the record under the feature names used by
// classifier artifacts, engineered features included.
func (v Vitals) FeatureMap() map[string]float64 {
	return map[string]float64{
		"maternal_hr":          v.MaternalHR,
		"systolic_bp":          v.SystolicBP,
		"diastolic_bp":         v.DiastolicBP,
		"fetal_hr":             v.FetalHR,
		"fetal_movement_count": v.FetalMovement,
		"spo2":                 v.SpO2,
		"temperature":          v.Temperature,
		"age":                  v.Age,
		"bs":                   v.BloodSugar,
		"map":                  v.MAP,
		"pulse_pressure":       v.PulsePressure,
	}
}

func pick(fields map[string]float64, name string, fallback float64) float64 {
	if f, ok := fields[name]; ok {
		return f
	}
	return fallback
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
