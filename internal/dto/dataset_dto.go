package dto

// PrepareDatasetRequest overrides curation defaults for one HTTP-triggered run.
type PrepareDatasetRequest struct {
	TaskType    string  `json:"task_type" validate:"omitempty,oneof=coding reasoning tools chat"`
	MinExamples int     `json:"min_examples" validate:"gte=0"`
	SplitRatio  float64 `json:"split_ratio" validate:"gte=0,lte=1"`
	Seed        int64   `json:"seed"`
}

// ListMeta describes a bounded list response.
type ListMeta struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}
