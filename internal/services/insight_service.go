package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const insightCollection = "ai_insights"

type InsightService struct {
	store    store.Store
	ai       *AIClient
	tracking *TrackingService
}

func NewInsightService(st store.Store, ai *AIClient, tracking *TrackingService) *InsightService {
	return &InsightService{store: st, ai: ai, tracking: tracking}
}

// DailyInsight summarizes how the day went. Weak days (score below 70)
// get an AI-written nudge; stronger days get a canned congratulation so
// the model is only consulted when there is something to coach.
func (s *InsightService) DailyInsight(userID string) (store.Document, error) {
	today := time.Now().UTC().Format("2006-01-02")
	day, err := s.tracking.GetDay(userID, today)
	if err != nil {
		return nil, err
	}

	score := 0.0
	if day != nil {
		score = ComplianceScore(day)
	}

	insight := store.Document{
		"type":             "daily",
		"date":             today,
		"compliance_score": score,
	}

	if score < 70 {
		text, err := s.generateNudge(userID, day, score)
		if err != nil && !errors.Is(err, ErrAIUnavailable) {
			return nil, err
		}
		if text == "" {
			text = "Today left room to improve. Pick one habit to focus on tomorrow: " +
				"a full meal log, a 30-minute walk, or an extra glass of water."
		}
		insight["message"] = text
		insight["tone"] = "coaching"
	} else {
		insight["message"] = fmt.Sprintf(
			"Strong day, %.0f/100. Keep the streak going tomorrow.", score)
		insight["tone"] = "praise"
	}

	id, err := s.store.AddUserDoc(userID, insightCollection, insight)
	if err != nil {
		return nil, err
	}
	insight["_id"] = id
	return insight, nil
}

// NextSteps recommends actions tiered by the recent average score.
func (s *InsightService) NextSteps(userID string) (store.Document, error) {
	stats, err := s.tracking.Stats(userID, "week")
	if err != nil {
		return nil, err
	}

	avg := numField(stats, "avg_compliance_score")
	var steps []interface{}
	var level string
	switch {
	case avg >= 90:
		level = "excellent"
		steps = []interface{}{
			"Maintain your routine and consider raising one goal",
			"Add variety: try a new exercise this week",
			"Share your progress with a friend for accountability",
		}
	case avg >= 70:
		level = "good"
		steps = []interface{}{
			"Target the weakest category from last week",
			"Prepare meals ahead on busy days",
			"Schedule workouts in your calendar",
		}
	default:
		level = "needs_focus"
		steps = []interface{}{
			"Start small: log at least one meal every day",
			"Take a 15-minute walk daily",
			"Set a water reminder for mid-morning and mid-afternoon",
		}
	}

	return store.Document{
		"level":      level,
		"avg_score":  avg,
		"next_steps": steps,
		"stats":      stats,
	}, nil
}

// Predict projects a metric over a timeframe using the AI model with a
// linear-trend fallback.
func (s *InsightService) Predict(userID string, req *dto.PredictionRequest) (store.Document, error) {
	switch req.PredictionType {
	case "weight_loss", "fitness_progress", "health_risk":
	default:
		return nil, fmt.Errorf("unknown prediction_type %q", req.PredictionType)
	}
	timeframe := req.TimeframeDays
	if timeframe <= 0 {
		timeframe = 30
	}

	history, err := s.tracking.History(userID, 30)
	if err != nil {
		return nil, err
	}

	prediction := store.Document{
		"prediction_type": req.PredictionType,
		"timeframe_days":  timeframe,
		"generated_at":    time.Now().UTC().Format(time.RFC3339),
	}

	prompt := fmt.Sprintf(
		"Given this user's last 30 days of health tracking, predict their %s over the next %d days.\n"+
			"Tracking data: %s\n"+
			`Respond with JSON: {"summary": string, "confidence": "low"|"medium"|"high", "projected_change": string, "recommendations": [string]}. JSON only.`,
		req.PredictionType, timeframe, compactJSON(history),
	)
	result, err := s.ai.GenerateJSON(prompt, "You are a health data analyst. Be conservative and realistic.", 0.4, 1024)
	if err == nil && result.IsObject() {
		prediction["summary"] = result.Get("summary").String()
		prediction["confidence"] = result.Get("confidence").String()
		prediction["projected_change"] = result.Get("projected_change").String()
		recs := make([]interface{}, 0)
		for _, r := range result.Get("recommendations").Array() {
			recs = append(recs, r.String())
		}
		prediction["recommendations"] = recs
		prediction["source"] = "ai"
	} else if err != nil && !errors.Is(err, ErrAIUnavailable) {
		return nil, err
	} else {
		prediction["summary"] = trendSummary(req.PredictionType, history)
		prediction["confidence"] = "low"
		prediction["source"] = "trend"
	}

	id, err := s.store.AddUserDoc(userID, insightCollection, store.Document{
		"type":       "prediction",
		"prediction": prediction,
	})
	if err != nil {
		return nil, err
	}
	prediction["_id"] = id
	return prediction, nil
}

func (s *InsightService) ListInsights(userID string, limit int) ([]store.Document, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.store.QueryUserDocs(userID, insightCollection, store.Query{Limit: limit})
}

func (s *InsightService) generateNudge(userID string, day store.Document, score float64) (string, error) {
	profile, err := s.store.GetUser(userID)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(
		"Today's compliance score was %.0f/100.\nProfile: %s\nToday's log: %s\n"+
			"Write a short, warm, actionable note (2-3 sentences) suggesting the single most impactful improvement for tomorrow.",
		score, compactJSON(profile), compactJSON(day),
	)
	return s.ai.Generate(prompt, "You are an encouraging health coach.", 0.7, 512)
}

func trendSummary(predictionType string, history []store.Document) string {
	var key string
	switch predictionType {
	case "weight_loss":
		key = "weight_kg"
	case "fitness_progress":
		key = "steps_count"
	default:
		key = "compliance_score"
	}

	// history is newest first
	var newest, oldest float64
	var seen int
	for _, d := range history {
		if v := numField(d, key); v > 0 {
			if seen == 0 {
				newest = v
			}
			oldest = v
			seen++
		}
	}
	if seen < 2 {
		return "Not enough data yet for a projection. Keep logging daily to unlock predictions."
	}

	delta := newest - oldest
	direction := "stable"
	if delta > 0 {
		direction = "trending up"
	} else if delta < 0 {
		direction = "trending down"
	}
	return fmt.Sprintf("Your %s is %s (%.1f change over the logged period). "+
		"Consistency is the biggest lever for the next few weeks.", key, direction, delta)
}
