package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

func newInsightService(st *store.Memory) *InsightService {
	return NewInsightService(st, offlineAI(), NewTrackingService(st))
}

func TestDailyInsightCoachesWeakDays(t *testing.T) {
	st := store.NewMemory()
	svc := newInsightService(st)

	// nothing logged today, so the score is 0
	insight, err := svc.DailyInsight("u1")
	require.NoError(t, err)
	require.Equal(t, "coaching", insight["tone"])
	require.Equal(t, float64(0), insight["compliance_score"])
	require.NotEmpty(t, insight["message"])
}

func TestDailyInsightPraisesStrongDays(t *testing.T) {
	st := store.NewMemory()
	svc := newInsightService(st)

	today := time.Now().UTC().Format("2006-01-02")
	_, err := st.SetUserDoc("u1", "daily_tracking", today, store.Document{
		"date": today,
		"meals": []interface{}{
			map[string]interface{}{}, map[string]interface{}{}, map[string]interface{}{},
		},
		"exercises": []interface{}{
			map[string]interface{}{"duration_minutes": float64(60)},
		},
		"water_intake_ml": float64(2000),
	})
	require.NoError(t, err)

	insight, err := svc.DailyInsight("u1")
	require.NoError(t, err)
	require.Equal(t, "praise", insight["tone"])
}

func TestDailyInsightIsPersisted(t *testing.T) {
	st := store.NewMemory()
	svc := newInsightService(st)

	_, err := svc.DailyInsight("u1")
	require.NoError(t, err)

	saved, err := svc.ListInsights("u1", 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
}

func TestNextStepsTiers(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		level string
	}{
		{"excellent", 95, "excellent"},
		{"good", 72, "good"},
		{"needs focus", 40, "needs_focus"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemory()
			svc := newInsightService(st)

			today := time.Now().UTC().Format("2006-01-02")
			_, err := st.SetUserDoc("u1", "daily_tracking", today, store.Document{
				"date": today, "compliance_score": tc.score,
			})
			require.NoError(t, err)

			result, err := svc.NextSteps("u1")
			require.NoError(t, err)
			require.Equal(t, tc.level, result["level"])
			require.NotEmpty(t, result["next_steps"])
		})
	}
}

func TestPredictRejectsUnknownType(t *testing.T) {
	svc := newInsightService(store.NewMemory())

	_, err := svc.Predict("u1", &dto.PredictionRequest{PredictionType: "lottery"})
	require.Error(t, err)
}

func TestPredictFallsBackToTrend(t *testing.T) {
	st := store.NewMemory()
	svc := newInsightService(st)

	today := time.Now().UTC()
	for i, w := range []float64{80, 79.5} {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		_, err := st.SetUserDoc("u1", "daily_tracking", date, store.Document{
			"date": date, "weight_kg": w,
		})
		require.NoError(t, err)
	}

	prediction, err := svc.Predict("u1", &dto.PredictionRequest{
		PredictionType: "weight_loss", TimeframeDays: 14,
	})
	require.NoError(t, err)
	require.Equal(t, "trend", prediction["source"])
	require.Equal(t, "low", prediction["confidence"])
	require.NotEmpty(t, prediction["summary"])
}

func TestTrendSummaryNeedsTwoPoints(t *testing.T) {
	summary := trendSummary("weight_loss", []store.Document{
		{"date": "2026-01-01", "weight_kg": float64(80)},
	})
	require.Contains(t, summary, "Not enough data")
}
