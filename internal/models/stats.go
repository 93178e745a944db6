package models

// SpiderStats is the scheduler's introspection view. Row counts come from
// the durable frontier; queue_size is the in-memory heap length.
type SpiderStats struct {
	Pending      int  `json:"pending"`
	Processing   int  `json:"processing"`
	Done         int  `json:"done"`
	Failed       int  `json:"failed"`
	QueueSize    int  `json:"queue_size"`
	MaxQueueSize int  `json:"max_queue_size"`
	Workers      int  `json:"workers"`
	Running      bool `json:"running"`
}

// AdmitResult reports the outcome of admitting one URL
type AdmitResult struct {
	Name     string `json:"name,omitempty"` // Source name when seeded from the catalog
	URL      string `json:"url"`
	Admitted bool   `json:"admitted"`
	Reason   string `json:"reason,omitempty"`
}

// EnqueueSummary aggregates a bulk admission (multi-enqueue or seeding).
// Rejections count as skipped and never abort the batch.
type EnqueueSummary struct {
	Enqueued int           `json:"enqueued"`
	Skipped  int           `json:"skipped"`
	Results  []AdmitResult `json:"results"`
}

// Add folds one admission outcome into the summary
func (s *EnqueueSummary) Add(result AdmitResult) {
	if result.Admitted {
		s.Enqueued++
	} else {
		s.Skipped++
	}
	s.Results = append(s.Results, result)
}
