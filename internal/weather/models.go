package weather

import (
	"time"

	"github.com/i474232898/weather-lookup/internal/common"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// ConditionFromDescription maps a provider's free-text description
// ("Partially cloudy", "Rain, Overcast") onto a Condition.
// Order matters: "Rain, Partially cloudy" is rain, not cloudy.
func ConditionFromDescription(desc string) Condition {
	switch {
	case desc == "":
		return ConditionUnknown
	case common.HasAnyFold(desc, "thunder", "storm"):
		return ConditionStorm
	case common.HasAnyFold(desc, "snow", "sleet", "blizzard", "ice pellets"):
		return ConditionSnow
	case common.HasAnyFold(desc, "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAnyFold(desc, "fog", "mist", "haze"):
		return ConditionMist
	case common.HasAnyFold(desc, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAnyFold(desc, "clear", "sunny"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// Location is a place a lookup resolved to. Name is the identity:
// looking up the same resolved name again reuses the stored row.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// Conditions is the weather at one point in time, either observed or forecast.
type Conditions struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // percent
	Pressure    float64   `json:"pressure"`    // hPa
	WindSpeed   float64   `json:"wind_speed"`  // km/h
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
}

// Condition derives the coarse category from the description.
func (c Conditions) Condition() Condition {
	return ConditionFromDescription(c.Description)
}

// Report is the answer to a lookup: current conditions plus the next days.
type Report struct {
	Location Location     `json:"location"`
	Current  Conditions   `json:"current"`
	Forecast []Conditions `json:"forecast"`
}

// Record is one stored lookup in a location's history.
type Record struct {
	ID         int64 `json:"id"`
	LocationID int64 `json:"location_id"`
	Conditions
	Forecast  []Conditions `json:"forecast_data,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Observation is what a provider returns for one query. ResolvedName and
// the coordinates describe the place the provider matched.
type Observation struct {
	ResolvedName string
	Country      string
	Latitude     float64
	Longitude    float64
	Timezone     string
	Current      Conditions
	Forecast     []Conditions
}
