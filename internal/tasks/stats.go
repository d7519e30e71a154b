package tasks

import "math"

type Stats struct {
	Total               int              `json:"total"`
	Completed           int              `json:"completed"`
	CompletedRatio      float64          `json:"completedRatio"`
	ProductivityScore   int              `json:"productivityScore"`
	AverageInsightScore int              `json:"averageInsightScore"`
	CriticalOpenCount   int              `json:"criticalOpenCount"`
	ByStatus            map[Status]int   `json:"byStatus"`
	ByPriority          map[Priority]int `json:"byPriority"`
}

// Summarize aggregates tasks. Ratios and averages are zero for an empty set.
func Summarize(tasks []Task) Stats {
	st := Stats{
		Total:      len(tasks),
		ByStatus:   make(map[Status]int),
		ByPriority: make(map[Priority]int),
	}

	scoreSum := 0
	for _, t := range tasks {
		st.ByStatus[t.Status]++
		st.ByPriority[t.Priority]++
		scoreSum += t.NeuralScore

		if t.Status == StatusCompleted {
			st.Completed++
		} else if t.Priority == PriorityCritical {
			st.CriticalOpenCount++
		}
	}

	if st.Total == 0 {
		return st
	}

	st.CompletedRatio = float64(st.Completed) / float64(st.Total)
	st.ProductivityScore = int(math.Round(st.CompletedRatio * 100))
	st.AverageInsightScore = int(math.Round(float64(scoreSum) / float64(st.Total)))
	return st
}
