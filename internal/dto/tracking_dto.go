package dto

type MealLog struct {
	MealType      string                   `json:"meal_type"`
	LoggedAt      string                   `json:"logged_at"`
	Items         []map[string]interface{} `json:"items"`
	TotalCalories int                      `json:"total_calories"`
	Photos        []string                 `json:"photos"`
	Notes         string                   `json:"notes"`
}

type ExerciseLog struct {
	ExerciseName    string `json:"exercise_name"`
	LoggedAt        string `json:"logged_at"`
	DurationMinutes int    `json:"duration_minutes"`
	CaloriesBurned  *int   `json:"calories_burned"`
	HeartRateAvg    *int   `json:"heart_rate_avg"`
	Notes           string `json:"notes"`
}

// TrackingRequest is one day of self-reported health data.
type TrackingRequest struct {
	Date          string        `json:"date"` // ISO date, doubles as the doc id
	WeightKg      *float64      `json:"weight_kg"`
	Meals         []MealLog     `json:"meals"`
	Exercises     []ExerciseLog `json:"exercises"`
	WaterIntakeML int           `json:"water_intake_ml"`
	StepsCount    int           `json:"steps_count"`
	SleepHours    *float64      `json:"sleep_hours"`
	MoodRating    *int          `json:"mood_rating"`
	EnergyLevel   *int          `json:"energy_level"`
	Notes         string        `json:"notes"`
}
