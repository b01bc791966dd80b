package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const onboardingDocID = "onboarding"
const profileCollection = "profile_data"

var ErrConsentRequired = errors.New("consent is required to complete onboarding")

// onboardingSections are the keys Update accepts; anything else in the
// payload is dropped.
var onboardingSections = []string{
	"health_data", "medical_conditions", "dietary_preferences", "goals",
}

type OnboardingService struct {
	store store.Store
	ai    *AIClient
}

func NewOnboardingService(st store.Store, ai *AIClient) *OnboardingService {
	return &OnboardingService{store: st, ai: ai}
}

// Complete stores the intake questionnaire and flags the profile as
// onboarded. Re-submitting merges over the previous answers.
func (s *OnboardingService) Complete(userID string, req *dto.OnboardingRequest) (store.Document, error) {
	if !req.ConsentGiven {
		return nil, ErrConsentRequired
	}

	doc := store.Document{
		"consent_given": true,
		"completed_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if req.HealthData != nil {
		doc["health_data"] = req.HealthData
	}
	if req.MedicalConditions != nil {
		doc["medical_conditions"] = req.MedicalConditions
	}
	if req.DietaryPreferences != nil {
		doc["dietary_preferences"] = req.DietaryPreferences
	}
	if req.Goals != nil {
		doc["goals"] = req.Goals
	}

	if err := s.store.UpdateUserDoc(userID, profileCollection, onboardingDocID, doc); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUser(userID, store.Document{
		"onboarding_completed": true,
	}); err != nil {
		return nil, err
	}
	return s.store.GetUserDoc(userID, profileCollection, onboardingDocID)
}

// Update merges changes into the stored answers, accepting only the
// known questionnaire sections.
func (s *OnboardingService) Update(userID string, updates store.Document) (store.Document, error) {
	filtered := store.Document{}
	for _, key := range onboardingSections {
		if v, ok := updates[key]; ok {
			filtered[key] = v
		}
	}
	if len(filtered) == 0 {
		return nil, errors.New("no updatable onboarding fields in request")
	}

	if err := s.store.UpdateUserDoc(userID, profileCollection, onboardingDocID, filtered); err != nil {
		return nil, err
	}
	return s.store.GetUserDoc(userID, profileCollection, onboardingDocID)
}

func (s *OnboardingService) Status(userID string) (store.Document, error) {
	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}

	completed, _ := profile["onboarding_completed"].(bool)
	status := store.Document{"completed": completed}
	if completed {
		data, err := s.store.GetUserDoc(userID, profileCollection, onboardingDocID)
		if err != nil {
			return nil, err
		}
		status["data"] = data
	}
	return status, nil
}

// Analyze derives BMI, daily calorie target and a macro split from the
// intake answers, plus an AI-written commentary when the model is
// reachable.
func (s *OnboardingService) Analyze(userID string) (store.Document, error) {
	data, err := s.store.GetUserDoc(userID, profileCollection, onboardingDocID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("onboarding not completed")
	}

	health, _ := data["health_data"].(map[string]interface{})
	heightCM := numField(health, "height_cm")
	weightKG := numField(health, "weight_kg")
	age := numField(health, "age")

	analysis := store.Document{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}

	if heightCM > 0 && weightKG > 0 {
		heightM := heightCM / 100
		bmi := math.Round(weightKG/(heightM*heightM)*10) / 10
		analysis["bmi"] = bmi
		analysis["bmi_category"] = bmiCategory(bmi)
	}
	if heightCM > 0 && weightKG > 0 && age > 0 {
		// Mifflin-St Jeor with a moderate-activity multiplier
		sex, _ := health["sex"].(string)
		bmr := 10*weightKG + 6.25*heightCM - 5*age
		if sex == "male" {
			bmr += 5
		} else {
			bmr -= 161
		}
		calories := math.Round(bmr * 1.4)
		analysis["daily_calorie_target"] = calories
		analysis["macro_split"] = map[string]interface{}{
			"protein_g": math.Round(weightKG * 1.6),
			"carbs_pct": 45,
			"fat_pct":   30,
		}
	}

	commentary, err := s.ai.Generate(
		fmt.Sprintf("Summarize what this health intake means for the user in 3 friendly sentences.\nIntake: %s\nDerived: %s",
			compactJSON(data), compactJSON(analysis)),
		"You are a registered dietitian writing a welcome summary.", 0.6, 512,
	)
	if err == nil {
		analysis["commentary"] = commentary
	} else if !errors.Is(err, ErrAIUnavailable) {
		return nil, err
	}

	if err := s.store.UpdateUserDoc(userID, profileCollection, "health_analysis", analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}
