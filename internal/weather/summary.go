package weather

import (
	"math"
	"time"
)

// Summary condenses a location's history for exports and the CLI.
type Summary struct {
	Count          int       `json:"count"`
	MinTemperature float64   `json:"min_temperature"`
	MaxTemperature float64   `json:"max_temperature"`
	AvgTemperature float64   `json:"avg_temperature"`
	AvgHumidity    float64   `json:"avg_humidity"`
	AvgWindSpeed   float64   `json:"avg_wind_speed"`
	Condition      Condition `json:"condition"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
}

// Summarize combines records into a Summary.
// Numeric fields are averaged; the condition is selected by majority,
// ties going to the condition seen first.
func Summarize(records []Record) Summary {
	if len(records) == 0 {
		return Summary{Condition: ConditionUnknown}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
	)

	minTemp, maxTemp := math.Inf(1), math.Inf(-1)
	conditionCounts := make(map[Condition]int)
	var order []Condition
	var from, to time.Time

	for _, r := range records {
		sumTemp += r.Temperature
		sumHumidity += r.Humidity
		sumWind += r.WindSpeed

		minTemp = math.Min(minTemp, r.Temperature)
		maxTemp = math.Max(maxTemp, r.Temperature)

		c := r.Condition()
		if conditionCounts[c] == 0 {
			order = append(order, c)
		}
		conditionCounts[c]++

		if from.IsZero() || r.DateTime.Before(from) {
			from = r.DateTime
		}
		if r.DateTime.After(to) {
			to = r.DateTime
		}
	}

	n := float64(len(records))

	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range order {
		if conditionCounts[cond] > bestCount {
			bestCount = conditionCounts[cond]
			bestCond = cond
		}
	}

	return Summary{
		Count:          len(records),
		MinTemperature: minTemp,
		MaxTemperature: maxTemp,
		AvgTemperature: sumTemp / n,
		AvgHumidity:    sumHumidity / n,
		AvgWindSpeed:   sumWind / n,
		Condition:      bestCond,
		From:           from,
		To:             to,
	}
}
