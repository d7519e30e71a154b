package analytics

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Gauges are the simulated system readings on the analytics page. They are
// cosmetic and carry no meaning beyond their ranges.
type Gauges struct {
	CPU       int       `json:"cpu"`
	Memory    int       `json:"memory"`
	Neural    int       `json:"neural"`
	Quantum   int       `json:"quantum"`
	Timestamp time.Time `json:"timestamp"`
}

func InitialGauges(now time.Time) Gauges {
	return Gauges{CPU: 34, Memory: 67, Neural: 78, Quantum: 45, Timestamp: now}
}

func SampleGauges(now time.Time) Gauges {
	return Gauges{
		CPU:       rand.IntN(40) + 20,
		Memory:    rand.IntN(30) + 50,
		Neural:    rand.IntN(20) + 70,
		Quantum:   rand.IntN(60) + 20,
		Timestamp: now,
	}
}

type PerformancePoint struct {
	Time  string `json:"time"`
	Value int    `json:"value"`
}

// PerformanceSeries returns quarter-hour points starting at 09:00.
func PerformanceSeries(points int) []PerformancePoint {
	out := make([]PerformancePoint, points)
	for i := range out {
		out[i] = PerformancePoint{
			Time:  fmt.Sprintf("%02d:%02d", 9+i/4, (i%4)*15),
			Value: rand.IntN(40) + 30,
		}
	}
	return out
}
