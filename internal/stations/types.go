package stations

import (
	"fmt"
	"time"
)

// Station is a weather station reporting wind measurements.
type Station struct {
	ID          string   `json:"id"`
	ShortName   string   `json:"shortName"`
	Name        string   `json:"name"`
	Altitude    int      `json:"altitude"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Status      string   `json:"status"` // "green", "orange", "red"
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// Message is one measurement sent by a station.
type Message struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	WindAverage   float64   `json:"windAverage"`   // km/h
	WindMax       float64   `json:"windMax"`       // km/h
	WindDirection int       `json:"windDirection"` // degrees
	Temperature   float64   `json:"temperature"`   // °C
	Humidity      float64   `json:"humidity"`      // %
}

// Station status values.
const (
	StatusGreen  = "green"
	StatusOrange = "orange"
	StatusRed    = "red"
)

// DisplayName returns the short name if set, otherwise the full name.
func (s Station) DisplayName() string {
	if s.ShortName != "" {
		return s.ShortName
	}
	return s.Name
}

// Age returns how long ago the message was recorded.
func (m Message) Age(now time.Time) time.Duration {
	return now.Sub(m.Timestamp)
}

// Summary is a one-line description of the measurement.
func (m Message) Summary() string {
	return fmt.Sprintf("%.0f km/h (max %.0f) from %s, %.1f°C",
		m.WindAverage, m.WindMax, Compass(m.WindDirection), m.Temperature)
}

// Compass converts a direction in degrees to a 16-point compass label.
func Compass(degrees int) string {
	points := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	d := ((degrees % 360) + 360) % 360
	return points[((d*100+1125)/2250)%16]
}

// Favorites returns the stations of list whose id is in ids, in the order of
// ids. Unknown ids are skipped. An empty ids returns list unchanged.
func Favorites(list []Station, ids []string) []Station {
	if len(ids) == 0 {
		return list
	}
	byID := make(map[string]Station, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}
	out := make([]Station, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
