package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

func offlineAI() *AIClient {
	return NewAIClient(&config.Config{AITimeout: time.Second})
}

func TestCreatePlanFallsBackWithoutAI(t *testing.T) {
	svc := NewPlanService(store.NewMemory(), offlineAI())

	plan, err := svc.CreatePlan("u1", &dto.PlanRequest{
		PlanName:      "Summer reset",
		DurationWeeks: 3,
		FocusAreas:    []string{"hydration"},
	})
	require.NoError(t, err)
	require.Equal(t, "template", plan["source"])
	require.Len(t, plan["weekly_plan"].([]interface{}), 3)
	require.NotEmpty(t, plan["_id"])
}

func TestCreatePlanRequiresName(t *testing.T) {
	svc := NewPlanService(store.NewMemory(), offlineAI())

	_, err := svc.CreatePlan("u1", &dto.PlanRequest{})
	require.Error(t, err)
}

func TestActivatePlanDeactivatesOthers(t *testing.T) {
	st := store.NewMemory()
	svc := NewPlanService(st, offlineAI())

	first, err := svc.CreatePlan("u1", &dto.PlanRequest{PlanName: "first"})
	require.NoError(t, err)
	second, err := svc.CreatePlan("u1", &dto.PlanRequest{PlanName: "second"})
	require.NoError(t, err)

	firstID := first["_id"].(string)
	secondID := second["_id"].(string)

	require.NoError(t, svc.ActivatePlan("u1", firstID))
	require.NoError(t, svc.ActivatePlan("u1", secondID))

	active, err := svc.ActivePlan("u1")
	require.NoError(t, err)
	require.Equal(t, secondID, active["_id"])

	firstAgain, err := svc.GetPlan("u1", firstID)
	require.NoError(t, err)
	require.Equal(t, false, firstAgain["is_active"])
}

func TestTodayPlanShowsCurrentWeek(t *testing.T) {
	st := store.NewMemory()
	svc := NewPlanService(st, offlineAI())

	plan, err := svc.CreatePlan("u1", &dto.PlanRequest{PlanName: "reset", DurationWeeks: 2})
	require.NoError(t, err)
	require.NoError(t, svc.ActivatePlan("u1", plan["_id"].(string)))

	today, err := svc.TodayPlan("u1")
	require.NoError(t, err)
	require.Equal(t, 1, today["week"]) // activated just now, so week one
	require.NotEmpty(t, today["theme"])
}

func TestTodayPlanWithoutActivePlan(t *testing.T) {
	svc := NewPlanService(store.NewMemory(), offlineAI())

	today, err := svc.TodayPlan("u1")
	require.NoError(t, err)
	require.Nil(t, today)
}

func TestActivateMissingPlan(t *testing.T) {
	svc := NewPlanService(store.NewMemory(), offlineAI())

	err := svc.ActivatePlan("u1", "nope")
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestActivePlanWhenNoneActive(t *testing.T) {
	svc := NewPlanService(store.NewMemory(), offlineAI())

	active, err := svc.ActivePlan("u1")
	require.NoError(t, err)
	require.Nil(t, active)
}
