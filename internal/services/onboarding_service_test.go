package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

func TestOnboardingRequiresConsent(t *testing.T) {
	svc := NewOnboardingService(store.NewMemory(), offlineAI())

	_, err := svc.Complete("u1", &dto.OnboardingRequest{})
	require.ErrorIs(t, err, ErrConsentRequired)
}

func TestOnboardingCompleteAndStatus(t *testing.T) {
	st := store.NewMemory()
	svc := NewOnboardingService(st, offlineAI())
	require.NoError(t, st.SetUser("u1", store.Document{"email": "a@b.com"}))

	result, err := svc.Complete("u1", &dto.OnboardingRequest{
		HealthData:   map[string]interface{}{"height_cm": 170},
		Goals:        map[string]interface{}{"target_weight_kg": 68},
		ConsentGiven: true,
	})
	require.NoError(t, err)
	require.Equal(t, true, result["consent_given"])

	status, err := svc.Status("u1")
	require.NoError(t, err)
	require.Equal(t, true, status["completed"])

	data := status["data"].(store.Document)
	health := data["health_data"].(map[string]interface{})
	require.Equal(t, float64(170), health["height_cm"])
}

func TestOnboardingUpdateFiltersSections(t *testing.T) {
	st := store.NewMemory()
	svc := NewOnboardingService(st, offlineAI())
	require.NoError(t, st.SetUser("u1", store.Document{}))

	_, err := svc.Complete("u1", &dto.OnboardingRequest{
		HealthData:   map[string]interface{}{"height_cm": 170},
		ConsentGiven: true,
	})
	require.NoError(t, err)

	result, err := svc.Update("u1", store.Document{
		"goals":         map[string]interface{}{"target_weight_kg": 65},
		"consent_given": false, // not an updatable section
	})
	require.NoError(t, err)
	require.Contains(t, result, "goals")
	require.Equal(t, true, result["consent_given"])

	_, err = svc.Update("u1", store.Document{"bogus": 1})
	require.Error(t, err)
}

func TestOnboardingAnalyzeDerivesTargets(t *testing.T) {
	st := store.NewMemory()
	svc := NewOnboardingService(st, offlineAI())
	require.NoError(t, st.SetUser("u1", store.Document{}))

	_, err := svc.Complete("u1", &dto.OnboardingRequest{
		HealthData: map[string]interface{}{
			"height_cm": 170, "weight_kg": 80, "age": 30, "sex": "male",
		},
		ConsentGiven: true,
	})
	require.NoError(t, err)

	analysis, err := svc.Analyze("u1")
	require.NoError(t, err)
	require.Equal(t, 27.7, analysis["bmi"])
	require.Equal(t, "overweight", analysis["bmi_category"])
	// 10*80 + 6.25*170 - 5*30 + 5 = 1717.5, * 1.4 = 2404.5 -> 2405
	require.Equal(t, float64(2405), analysis["daily_calorie_target"])
	// offline AI: no commentary, but the analysis still persists
	require.NotContains(t, analysis, "commentary")

	stored, err := st.GetUserDoc("u1", "profile_data", "health_analysis")
	require.NoError(t, err)
	require.Equal(t, 27.7, stored["bmi"])
}

func TestOnboardingAnalyzeWithoutIntake(t *testing.T) {
	svc := NewOnboardingService(store.NewMemory(), offlineAI())

	_, err := svc.Analyze("u1")
	require.Error(t, err)
}

func TestOnboardingResubmissionMerges(t *testing.T) {
	st := store.NewMemory()
	svc := NewOnboardingService(st, offlineAI())
	require.NoError(t, st.SetUser("u1", store.Document{}))

	_, err := svc.Complete("u1", &dto.OnboardingRequest{
		HealthData:   map[string]interface{}{"height_cm": 170},
		ConsentGiven: true,
	})
	require.NoError(t, err)

	result, err := svc.Complete("u1", &dto.OnboardingRequest{
		Goals:        map[string]interface{}{"target_weight_kg": 68},
		ConsentGiven: true,
	})
	require.NoError(t, err)
	require.Contains(t, result, "health_data")
	require.Contains(t, result, "goals")
}
