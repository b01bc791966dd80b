package services

import (
	"time"

	"github.com/vitacoach/coach-backend/internal/store"
)

type DashboardService struct {
	store    store.Store
	tracking *TrackingService
	plans    *PlanService
	insights *InsightService
}

func NewDashboardService(st store.Store, tracking *TrackingService, plans *PlanService, insights *InsightService) *DashboardService {
	return &DashboardService{store: st, tracking: tracking, plans: plans, insights: insights}
}

// Overview is the single payload behind the app's home screen.
func (s *DashboardService) Overview(userID string) (store.Document, error) {
	out := store.Document{}

	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	out["profile"] = profile

	today := time.Now().UTC().Format("2006-01-02")
	day, err := s.tracking.GetDay(userID, today)
	if err != nil {
		return nil, err
	}
	if day == nil {
		day = store.Document{"date": today, "logged": false}
	}
	out["today"] = day

	stats, err := s.tracking.Stats(userID, "week")
	if err != nil {
		return nil, err
	}
	out["week_stats"] = stats

	plan, err := s.plans.ActivePlan(userID)
	if err != nil {
		return nil, err
	}
	out["active_plan"] = plan

	insights, err := s.insights.ListInsights(userID, 3)
	if err != nil {
		return nil, err
	}
	out["recent_insights"] = insights

	streak, err := s.Streak(userID)
	if err != nil {
		return nil, err
	}
	out["streak_days"] = streak

	return out, nil
}

// Streak counts consecutive logged days ending today. A missing log
// for today doesn't break the streak until the day is over, so the
// count starts from yesterday when today is empty.
func (s *DashboardService) Streak(userID string) (int, error) {
	history, err := s.tracking.History(userID, 90)
	if err != nil {
		return 0, err
	}

	streak := 0
	for i, day := range history {
		if logged, ok := day["logged"].(bool); ok && !logged {
			if i == 0 {
				continue
			}
			break
		}
		streak++
	}
	return streak, nil
}
