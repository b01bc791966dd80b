package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const planCollection = "health_plans"

var ErrPlanNotFound = errors.New("plan not found")

type PlanService struct {
	store store.Store
	ai    *AIClient
}

func NewPlanService(st store.Store, ai *AIClient) *PlanService {
	return &PlanService{store: st, ai: ai}
}

// CreatePlan generates a personalized plan. When the AI backend is
// unreachable it falls back to a generic template so the endpoint
// still produces something usable.
func (s *PlanService) CreatePlan(userID string, req *dto.PlanRequest) (store.Document, error) {
	if req.PlanName == "" {
		return nil, errors.New("plan_name is required")
	}
	weeks := req.DurationWeeks
	if weeks <= 0 {
		weeks = 4
	}

	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}

	plan := store.Document{
		"plan_name":      req.PlanName,
		"duration_weeks": weeks,
		"focus_areas":    toInterfaceSlice(req.FocusAreas),
		"is_active":      false,
		"source":         "template",
	}
	if req.Preferences != nil {
		plan["preferences"] = req.Preferences
	}

	weekly, err := s.generateWeeklyPlan(profile, req, weeks)
	if err == nil {
		plan["weekly_plan"] = weekly
		plan["source"] = "ai"
	} else if errors.Is(err, ErrAIUnavailable) {
		plan["weekly_plan"] = fallbackWeeklyPlan(weeks)
	} else {
		return nil, err
	}

	docID, err := s.store.AddUserDoc(userID, planCollection, plan)
	if err != nil {
		return nil, err
	}
	plan["_id"] = docID
	return plan, nil
}

func (s *PlanService) GetPlan(userID, planID string) (store.Document, error) {
	doc, err := s.store.GetUserDoc(userID, planCollection, planID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrPlanNotFound
	}
	return doc, nil
}

func (s *PlanService) ListPlans(userID string, limit int) ([]store.Document, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.store.QueryUserDocs(userID, planCollection, store.Query{Limit: limit})
}

func (s *PlanService) ActivePlan(userID string) (store.Document, error) {
	docs, err := s.store.QueryUserDocs(userID, planCollection, store.Query{
		Filters: map[string]interface{}{"is_active": true},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// ActivatePlan marks one plan active and deactivates every other
// active plan, so at most one plan is active at a time.
func (s *PlanService) ActivatePlan(userID, planID string) error {
	target, err := s.store.GetUserDoc(userID, planCollection, planID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrPlanNotFound
	}

	active, err := s.store.QueryUserDocs(userID, planCollection, store.Query{
		Filters: map[string]interface{}{"is_active": true},
	})
	if err != nil {
		return err
	}
	for _, doc := range active {
		id, _ := doc["_id"].(string)
		if id == "" || id == planID {
			continue
		}
		if err := s.store.UpdateUserDoc(userID, planCollection, id, store.Document{
			"is_active": false,
		}); err != nil {
			return err
		}
	}

	return s.store.UpdateUserDoc(userID, planCollection, planID, store.Document{
		"is_active":    true,
		"activated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// TodayPlan projects the active plan onto today: the current week's
// theme, goals and daily habits, positioned by the activation date.
func (s *PlanService) TodayPlan(userID string) (store.Document, error) {
	plan, err := s.ActivePlan(userID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	week := 0
	if activatedAt, ok := plan["activated_at"].(string); ok {
		if at, err := time.Parse(time.RFC3339, activatedAt); err == nil {
			week = int(time.Since(at).Hours() / (24 * 7))
		}
	}

	weekly, _ := plan["weekly_plan"].([]interface{})
	if len(weekly) == 0 {
		return store.Document{"plan_name": plan["plan_name"], "week": week + 1}, nil
	}
	if week >= len(weekly) {
		week = len(weekly) - 1
	}

	today := store.Document{
		"plan_name": plan["plan_name"],
		"plan_id":   plan["_id"],
		"week":      week + 1,
	}
	if w, ok := weekly[week].(map[string]interface{}); ok {
		today["theme"] = w["theme"]
		today["goals"] = w["goals"]
		today["daily_habits"] = w["daily_habits"]
	}
	return today, nil
}

func (s *PlanService) DeletePlan(userID, planID string) error {
	return s.store.DeleteUserDoc(userID, planCollection, planID)
}

func (s *PlanService) generateWeeklyPlan(profile store.Document, req *dto.PlanRequest, weeks int) ([]interface{}, error) {
	prompt := fmt.Sprintf(
		"Create a %d-week health plan named %q focusing on %v.\nUser profile: %s\n"+
			"Respond with a JSON array, one object per week, each with keys "+
			`"week" (number), "theme" (string), "goals" (array of strings) and "daily_habits" (array of strings). JSON only.`,
		weeks, req.PlanName, req.FocusAreas, compactJSON(profile),
	)

	result, err := s.ai.GenerateJSON(prompt, "You are a certified health coach designing realistic weekly plans.", 0.7, 2048)
	if err != nil {
		return nil, err
	}
	if !result.IsArray() {
		return nil, ErrAIUnavailable
	}

	weekly := make([]interface{}, 0, weeks)
	for _, wk := range result.Array() {
		weekly = append(weekly, wk.Value())
	}
	if len(weekly) == 0 {
		return nil, ErrAIUnavailable
	}
	return weekly, nil
}

func fallbackWeeklyPlan(weeks int) []interface{} {
	themes := []string{
		"Build the habit: log every day",
		"Move more: add 2000 daily steps",
		"Fuel well: three balanced meals",
		"Recover: sleep and hydration focus",
	}
	out := make([]interface{}, 0, weeks)
	for i := 0; i < weeks; i++ {
		out = append(out, store.Document{
			"week":  i + 1,
			"theme": themes[i%len(themes)],
			"goals": []interface{}{
				"Log meals, water and activity daily",
				"Hit at least 30 minutes of exercise on 4 days",
			},
			"daily_habits": []interface{}{
				"Drink 2L of water",
				"Walk after one meal",
			},
		})
	}
	return out
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}
