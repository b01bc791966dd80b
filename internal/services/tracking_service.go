package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const trackingCollection = "daily_tracking"

var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

type TrackingService struct {
	store store.Store
}

func NewTrackingService(st store.Store) *TrackingService {
	return &TrackingService{store: st}
}

// LogDay upserts the tracking document for a date. The date itself is
// the document id, so re-submitting the same day merges into it.
func (s *TrackingService) LogDay(userID string, req *dto.TrackingRequest) (store.Document, error) {
	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, ErrInvalidDate
	}

	doc := store.Document{
		"date":       date,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if req.WeightKg != nil {
		doc["weight_kg"] = *req.WeightKg
	}
	if req.Meals != nil {
		meals := make([]interface{}, 0, len(req.Meals))
		for _, m := range req.Meals {
			meal := store.Document{
				"meal_type":      m.MealType,
				"logged_at":      m.LoggedAt,
				"total_calories": m.TotalCalories,
			}
			if len(m.Items) > 0 {
				meal["items"] = m.Items
			}
			if len(m.Photos) > 0 {
				meal["photos"] = m.Photos
			}
			if m.Notes != "" {
				meal["notes"] = m.Notes
			}
			meals = append(meals, meal)
		}
		doc["meals"] = meals
	}
	if req.Exercises != nil {
		exercises := make([]interface{}, 0, len(req.Exercises))
		for _, e := range req.Exercises {
			exercise := store.Document{
				"exercise_name":    e.ExerciseName,
				"logged_at":        e.LoggedAt,
				"duration_minutes": e.DurationMinutes,
			}
			if e.CaloriesBurned != nil {
				exercise["calories_burned"] = *e.CaloriesBurned
			}
			if e.HeartRateAvg != nil {
				exercise["heart_rate_avg"] = *e.HeartRateAvg
			}
			if e.Notes != "" {
				exercise["notes"] = e.Notes
			}
			exercises = append(exercises, exercise)
		}
		doc["exercises"] = exercises
	}
	if req.WaterIntakeML > 0 {
		doc["water_intake_ml"] = req.WaterIntakeML
	}
	if req.StepsCount > 0 {
		doc["steps_count"] = req.StepsCount
	}
	if req.SleepHours != nil {
		doc["sleep_hours"] = *req.SleepHours
	}
	if req.MoodRating != nil {
		doc["mood_rating"] = *req.MoodRating
	}
	if req.EnergyLevel != nil {
		doc["energy_level"] = *req.EnergyLevel
	}
	if req.Notes != "" {
		doc["notes"] = req.Notes
	}

	if err := s.store.UpdateUserDoc(userID, trackingCollection, date, doc); err != nil {
		return nil, err
	}

	merged, err := s.store.GetUserDoc(userID, trackingCollection, date)
	if err != nil {
		return nil, err
	}
	merged["compliance_score"] = ComplianceScore(merged)
	if err := s.store.UpdateUserDoc(userID, trackingCollection, date, store.Document{
		"compliance_score": merged["compliance_score"],
	}); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *TrackingService) GetDay(userID, date string) (store.Document, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, ErrInvalidDate
	}
	return s.store.GetUserDoc(userID, trackingCollection, date)
}

func (s *TrackingService) DeleteDay(userID, date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidDate
	}
	return s.store.DeleteUserDoc(userID, trackingCollection, date)
}

// LogMeal appends a single meal to today's document, the quick-log
// path for clients that don't submit a full day at once.
func (s *TrackingService) LogMeal(userID string, meal *dto.MealLog) (store.Document, error) {
	return s.appendToToday(userID, "meals", store.Document{
		"meal_type":      meal.MealType,
		"logged_at":      loggedAtOrNow(meal.LoggedAt),
		"total_calories": meal.TotalCalories,
		"notes":          meal.Notes,
	})
}

// LogExercise appends a single exercise entry to today's document.
func (s *TrackingService) LogExercise(userID string, exercise *dto.ExerciseLog) (store.Document, error) {
	entry := store.Document{
		"exercise_name":    exercise.ExerciseName,
		"logged_at":        loggedAtOrNow(exercise.LoggedAt),
		"duration_minutes": exercise.DurationMinutes,
	}
	if exercise.CaloriesBurned != nil {
		entry["calories_burned"] = *exercise.CaloriesBurned
	}
	return s.appendToToday(userID, "exercises", entry)
}

func (s *TrackingService) appendToToday(userID, key string, entry store.Document) (store.Document, error) {
	date := time.Now().UTC().Format("2006-01-02")

	day, err := s.store.GetUserDoc(userID, trackingCollection, date)
	if err != nil {
		return nil, err
	}
	var entries []interface{}
	if day != nil {
		entries, _ = day[key].([]interface{})
	}
	entries = append(entries, entry)

	update := store.Document{"date": date, key: entries}
	if err := s.store.UpdateUserDoc(userID, trackingCollection, date, update); err != nil {
		return nil, err
	}

	merged, err := s.store.GetUserDoc(userID, trackingCollection, date)
	if err != nil {
		return nil, err
	}
	score := ComplianceScore(merged)
	if err := s.store.UpdateUserDoc(userID, trackingCollection, date, store.Document{
		"compliance_score": score,
	}); err != nil {
		return nil, err
	}
	merged["compliance_score"] = score
	return merged, nil
}

func loggedAtOrNow(loggedAt string) string {
	if loggedAt != "" {
		return loggedAt
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// History returns one entry per day for the last `days` days, newest
// first. Days with no log come back as stubs so clients can render a
// contiguous calendar.
func (s *TrackingService) History(userID string, days int) ([]store.Document, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	docs, err := s.store.QueryUserDocs(userID, trackingCollection, store.Query{Limit: days + 1})
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]store.Document, len(docs))
	for _, d := range docs {
		if date, ok := d["date"].(string); ok {
			byDate[date] = d
		}
	}

	out := make([]store.Document, 0, days)
	today := time.Now().UTC()
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		if d, ok := byDate[date]; ok {
			out = append(out, d)
		} else {
			out = append(out, store.Document{"date": date, "logged": false})
		}
	}
	return out, nil
}

// Stats aggregates tracking over a named period: week, month or quarter.
func (s *TrackingService) Stats(userID, period string) (store.Document, error) {
	var days int
	switch period {
	case "", "week":
		period, days = "week", 6
	case "month":
		days = 29
	case "quarter":
		days = 89
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	docs, err := s.store.QueryUserDocs(userID, trackingCollection, store.Query{Limit: days + 1})
	if err != nil {
		return nil, err
	}

	var (
		loggedDays   int
		totalScore   float64
		totalSteps   float64
		totalWater   float64
		weightFirst  float64
		weightLast   float64
		weightSeen   int
		exerciseMins float64
	)
	for _, d := range docs {
		date, _ := d["date"].(string)
		if date < cutoff {
			continue
		}
		loggedDays++
		totalScore += numField(d, "compliance_score")
		totalSteps += numField(d, "steps_count")
		totalWater += numField(d, "water_intake_ml")
		exerciseMins += exerciseMinutes(d)
		if w := numField(d, "weight_kg"); w > 0 {
			// docs come back newest first
			if weightSeen == 0 {
				weightLast = w
			}
			weightFirst = w
			weightSeen++
		}
	}

	stats := store.Document{
		"period":      period,
		"days_logged": loggedDays,
		"total_days":  days + 1,
	}
	if loggedDays > 0 {
		stats["avg_compliance_score"] = round1(totalScore / float64(loggedDays))
		stats["avg_steps"] = round1(totalSteps / float64(loggedDays))
		stats["avg_water_ml"] = round1(totalWater / float64(loggedDays))
		stats["total_exercise_minutes"] = exerciseMins
	}
	if weightSeen >= 2 {
		stats["weight_change_kg"] = round1(weightLast - weightFirst)
	}
	return stats, nil
}

// ComplianceScore rates a day 0-100 from meals, exercise, water and steps.
func ComplianceScore(day store.Document) float64 {
	score := 0.0

	mealCount := 0
	if meals, ok := day["meals"].([]interface{}); ok {
		mealCount = len(meals)
	}
	switch {
	case mealCount >= 3:
		score += 40
	case mealCount >= 2:
		score += 30
	case mealCount >= 1:
		score += 20
	}

	minutes := exerciseMinutes(day)
	switch {
	case minutes >= 60:
		score += 30
	case minutes >= 30:
		score += 20
	case minutes >= 15:
		score += 10
	}

	water := numField(day, "water_intake_ml")
	switch {
	case water >= 2000:
		score += 15
	case water >= 1500:
		score += 10
	case water >= 1000:
		score += 5
	}

	steps := numField(day, "steps_count")
	switch {
	case steps >= 8000:
		score += 15
	case steps >= 6000:
		score += 10
	case steps >= 4000:
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}

func exerciseMinutes(day store.Document) float64 {
	total := 0.0
	if exercises, ok := day["exercises"].([]interface{}); ok {
		for _, e := range exercises {
			if m, ok := e.(map[string]interface{}); ok {
				total += numField(m, "duration_minutes")
			}
			if m, ok := e.(store.Document); ok {
				total += numField(m, "duration_minutes")
			}
		}
	}
	return total
}

func numField(doc map[string]interface{}, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
