package tasks

import "time"

// DemoTasks is the board shown on a fresh dashboard.
func DemoTasks() []Task {
	return []Task{
		{
			ID:            "1",
			Title:         "Implement quantum encryption protocol",
			Description:   "Develop and integrate advanced quantum encryption for secure data transmission across neural networks.",
			Priority:      PriorityCritical,
			Status:        StatusInProgress,
			AIInsight:     "High complexity task requiring 23% more focus. Recommend breaking into 3 subtasks for optimal neural processing.",
			EstimatedTime: "8.5 hours",
			Deadline:      "2024-01-15",
			Category:      "Security",
			NeuralScore:   87,
			CreatedAt:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:            "2",
			Title:         "Optimize AI response algorithms",
			Description:   "Fine-tune machine learning models for faster and more accurate AI responses in the chat interface.",
			Priority:      PriorityHigh,
			Status:        StatusTodo,
			AIInsight:     "Medium complexity. Neural patterns suggest 15% efficiency gain possible with current resource allocation.",
			EstimatedTime: "6.2 hours",
			Deadline:      "2024-01-18",
			Category:      "AI/ML",
			NeuralScore:   72,
			CreatedAt:     time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:            "3",
			Title:         "Update dashboard analytics",
			Description:   "Enhance real-time analytics display with new quantum-inspired visualization components.",
			Priority:      PriorityMedium,
			Status:        StatusCompleted,
			AIInsight:     "Task completed 12% faster than predicted. Neural efficiency patterns suggest similar tasks can be expedited.",
			EstimatedTime: "4.1 hours",
			Category:      "Frontend",
			NeuralScore:   94,
			CreatedAt:     time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		},
	}
}
