package dto

type PlanRequest struct {
	PlanName      string                 `json:"plan_name"`
	DurationWeeks int                    `json:"duration_weeks"`
	FocusAreas    []string               `json:"focus_areas"`
	Preferences   map[string]interface{} `json:"preferences"`
}
