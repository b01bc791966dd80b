package dto

type PredictionRequest struct {
	PredictionType string `json:"prediction_type"` // weight_loss, fitness_progress, health_risk
	TimeframeDays  int    `json:"timeframe_days"`
}
