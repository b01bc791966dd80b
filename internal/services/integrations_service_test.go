package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

func newIntegrationsFixture() (*IntegrationsService, *store.Memory) {
	st := store.NewMemory()
	return NewIntegrationsService(st, offlineAI(), NewTrackingService(st)), st
}

func TestNutritionInfoDegradesGracefully(t *testing.T) {
	svc, _ := newIntegrationsFixture()

	info, err := svc.NutritionInfo("oatmeal")
	require.NoError(t, err)
	require.Equal(t, false, info["available"])
	require.Equal(t, "oatmeal", info["food_item"])
}

func TestNutritionInfoRequiresFood(t *testing.T) {
	svc, _ := newIntegrationsFixture()

	_, err := svc.NutritionInfo("")
	require.Error(t, err)
}

func TestSyncWearableRejectsUnknownProvider(t *testing.T) {
	svc, _ := newIntegrationsFixture()

	_, err := svc.SyncWearable("u1", &dto.WearableSyncRequest{
		Provider: "pebble", AccessToken: "tok",
	})
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestSyncWearableRequiresToken(t *testing.T) {
	svc, _ := newIntegrationsFixture()

	_, err := svc.SyncWearable("u1", &dto.WearableSyncRequest{Provider: "fitbit"})
	require.Error(t, err)
}

func TestAnalyzeTrendComputesChange(t *testing.T) {
	svc, st := newIntegrationsFixture()

	now := time.Now().UTC()
	for i, steps := range []float64{9000, 6000, 3000} {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		_, err := st.SetUserDoc("u1", "daily_tracking", date, store.Document{
			"date": date, "steps_count": steps,
		})
		require.NoError(t, err)
	}

	trend, err := svc.AnalyzeTrend("u1", "steps_count")
	require.NoError(t, err)
	require.Equal(t, 3, trend["data_points"])
	require.Equal(t, float64(6000), trend["average"])
	require.Equal(t, float64(6000), trend["change"])
}

func TestAnalyzeTrendRejectsUnknownMetric(t *testing.T) {
	svc, _ := newIntegrationsFixture()

	_, err := svc.AnalyzeTrend("u1", "shoe_size")
	require.Error(t, err)
}
