package dto

type ChatRequest struct {
	Message   string                   `json:"message"`
	SessionID string                   `json:"session_id"`
	Context   map[string]interface{}   `json:"context"`
	History   []map[string]interface{} `json:"history"`
}
