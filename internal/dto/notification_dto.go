package dto

type DeviceRegisterRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // ios or android
}

type NotificationRequest struct {
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Type        string                 `json:"type"`
	Data        map[string]interface{} `json:"data"`
	ScheduledAt string                 `json:"scheduled_at"` // RFC3339, empty means send now
}

type NotificationPreferences struct {
	MealReminders        *bool `json:"meal_reminders"`
	ExerciseReminders    *bool `json:"exercise_reminders"`
	MotivationalMessages *bool `json:"motivational_messages"`
	ProgressUpdates      *bool `json:"progress_updates"`
}

type BulkNotificationRequest struct {
	UserIDs []string               `json:"user_ids"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Type    string                 `json:"type"`
	Data    map[string]interface{} `json:"data"`
}
