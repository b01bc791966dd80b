package dto

type NutritionRequest struct {
	FoodItem string `json:"food_item"`
}

type ExerciseInfoRequest struct {
	ExerciseName string `json:"exercise_name"`
}

type WearableSyncRequest struct {
	Provider    string `json:"provider"` // fitbit or garmin
	AccessToken string `json:"access_token"`
}

type WeatherRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type TrendAnalysisRequest struct {
	DataType string `json:"data_type"` // weight, compliance_score, steps_count, ...
}

type ResearchRequest struct {
	Topic string `json:"topic"`
	Limit int    `json:"limit"`
}

type WebSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}
