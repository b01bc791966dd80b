package dto

type OnboardingRequest struct {
	HealthData         map[string]interface{} `json:"health_data"`
	MedicalConditions  map[string]interface{} `json:"medical_conditions"`
	DietaryPreferences map[string]interface{} `json:"dietary_preferences"`
	Goals              map[string]interface{} `json:"goals"`
	ConsentGiven       bool                   `json:"consent_given"`
}
