package services

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const integrationCollection = "integrations"

var ErrUnsupportedProvider = errors.New("unsupported wearable provider")

// IntegrationsService covers external lookups: nutrition and exercise
// knowledge, wearable sync, weather, and research search.
type IntegrationsService struct {
	store      store.Store
	ai         *AIClient
	tracking   *TrackingService
	httpClient *http.Client
}

func NewIntegrationsService(st store.Store, ai *AIClient, tracking *TrackingService) *IntegrationsService {
	return &IntegrationsService{
		store:      st,
		ai:         ai,
		tracking:   tracking,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *IntegrationsService) NutritionInfo(foodItem string) (store.Document, error) {
	if foodItem == "" {
		return nil, errors.New("food_item is required")
	}

	prompt := fmt.Sprintf(
		"Give nutrition facts for a typical serving of %q.\n"+
			`Respond with JSON: {"food_item": string, "serving_size": string, "calories": number, "protein_g": number, "carbs_g": number, "fat_g": number, "fiber_g": number, "notes": string}. JSON only.`,
		foodItem,
	)
	result, err := s.ai.GenerateJSON(prompt, "You are a nutrition database. Use standard USDA-style values.", 0.2, 512)
	doc, err := docFromResult(result, err)
	if err != nil {
		if errors.Is(err, ErrAIUnavailable) {
			return store.Document{
				"food_item": foodItem,
				"available": false,
				"notes":     "Nutrition lookup is temporarily unavailable.",
			}, nil
		}
		return nil, err
	}
	doc["available"] = true
	return doc, nil
}

func (s *IntegrationsService) ExerciseInfo(exerciseName string) (store.Document, error) {
	if exerciseName == "" {
		return nil, errors.New("exercise_name is required")
	}

	prompt := fmt.Sprintf(
		"Describe the exercise %q.\n"+
			`Respond with JSON: {"exercise_name": string, "muscle_groups": [string], "difficulty": "beginner"|"intermediate"|"advanced", "calories_per_30min": number, "instructions": [string], "safety_tips": [string]}. JSON only.`,
		exerciseName,
	)
	result, err := s.ai.GenerateJSON(prompt, "You are a certified personal trainer.", 0.3, 768)
	doc, err := docFromResult(result, err)
	if err != nil {
		if errors.Is(err, ErrAIUnavailable) {
			return store.Document{
				"exercise_name": exerciseName,
				"available":     false,
			}, nil
		}
		return nil, err
	}
	doc["available"] = true
	return doc, nil
}

// SyncWearable pulls today's activity from a wearable provider and
// merges steps and active minutes into the day's tracking document.
func (s *IntegrationsService) SyncWearable(userID string, req *dto.WearableSyncRequest) (store.Document, error) {
	if req.AccessToken == "" {
		return nil, errors.New("access_token is required")
	}

	today := time.Now().UTC().Format("2006-01-02")
	var steps, activeMinutes float64
	var err error
	switch req.Provider {
	case "fitbit":
		steps, activeMinutes, err = s.fetchFitbit(req.AccessToken, today)
	case "garmin":
		steps, activeMinutes, err = s.fetchGarmin(req.AccessToken)
	default:
		return nil, ErrUnsupportedProvider
	}
	if err != nil {
		return nil, err
	}

	update := store.Document{"date": today}
	if steps > 0 {
		update["steps_count"] = steps
	}
	if err := s.store.UpdateUserDoc(userID, trackingCollection, today, update); err != nil {
		return nil, err
	}

	sync := store.Document{
		"provider":       req.Provider,
		"synced_at":      time.Now().UTC().Format(time.RFC3339),
		"steps":          steps,
		"active_minutes": activeMinutes,
	}
	if _, err := s.store.AddUserDoc(userID, integrationCollection, sync); err != nil {
		return nil, err
	}
	return sync, nil
}

// Weather calls Open-Meteo, which needs no API key, and tags the
// result with a simple outdoor-exercise verdict.
func (s *IntegrationsService) Weather(lat, lon float64) (store.Document, error) {
	url := fmt.Sprintf(
		"https://api.open-meteo.com/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m,precipitation,wind_speed_10m",
		lat, lon,
	)
	body, err := s.getJSON(url, "")
	if err != nil {
		return nil, err
	}

	current := gjson.GetBytes(body, "current")
	temp := current.Get("temperature_2m").Float()
	precipitation := current.Get("precipitation").Float()
	wind := current.Get("wind_speed_10m").Float()

	goodForOutdoor := temp >= 5 && temp <= 32 && precipitation < 0.5 && wind < 40
	return store.Document{
		"temperature_c":    temp,
		"precipitation_mm": precipitation,
		"wind_kmh":         wind,
		"good_for_outdoor": goodForOutdoor,
	}, nil
}

// AnalyzeTrend computes the direction of one tracked metric over the
// last month.
func (s *IntegrationsService) AnalyzeTrend(userID, dataType string) (store.Document, error) {
	switch dataType {
	case "weight_kg", "compliance_score", "steps_count", "water_intake_ml", "sleep_hours":
	default:
		return nil, fmt.Errorf("unsupported data_type %q", dataType)
	}

	history, err := s.tracking.History(userID, 30)
	if err != nil {
		return nil, err
	}

	points := make([]store.Document, 0, len(history))
	var sum float64
	var count int
	for _, d := range history {
		v := numField(d, dataType)
		if v == 0 {
			continue
		}
		date, _ := d["date"].(string)
		points = append(points, store.Document{"date": date, "value": v})
		sum += v
		count++
	}

	out := store.Document{
		"data_type":   dataType,
		"data_points": len(points),
		"points":      points,
	}
	if count > 0 {
		out["average"] = round1(sum / float64(count))
	}
	if len(points) >= 2 {
		// points are newest first
		newest := numField(points[0], "value")
		oldest := numField(points[len(points)-1], "value")
		out["change"] = round1(newest - oldest)
	}
	return out, nil
}

func (s *IntegrationsService) Research(topic string, limit int) (store.Document, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	prompt := fmt.Sprintf(
		"Summarize the current scientific consensus on %q for a general audience.\n"+
			`Respond with JSON: {"topic": string, "summary": string, "key_findings": [string], "caveats": [string]}. Include at most %d key findings. JSON only.`,
		topic, limit,
	)
	result, err := s.ai.GenerateJSON(prompt, "You are a careful science communicator. Flag uncertainty explicitly.", 0.3, 1024)
	doc, err := docFromResult(result, err)
	if err != nil {
		if errors.Is(err, ErrAIUnavailable) {
			return store.Document{"topic": topic, "available": false}, nil
		}
		return nil, err
	}
	doc["available"] = true
	return doc, nil
}

func (s *IntegrationsService) WebSearch(query string, numResults int) (store.Document, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	if numResults <= 0 || numResults > 10 {
		numResults = 5
	}

	url := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1",
		neturl.QueryEscape(query))
	body, err := s.getJSON(url, "")
	if err != nil {
		return nil, err
	}

	results := make([]store.Document, 0, numResults)
	abstract := gjson.GetBytes(body, "AbstractText").String()
	if abstract != "" {
		results = append(results, store.Document{
			"title":   gjson.GetBytes(body, "Heading").String(),
			"snippet": abstract,
			"url":     gjson.GetBytes(body, "AbstractURL").String(),
		})
	}
	gjson.GetBytes(body, "RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
		if len(results) >= numResults {
			return false
		}
		text := topic.Get("Text").String()
		if text == "" {
			return true
		}
		results = append(results, store.Document{
			"snippet": text,
			"url":     topic.Get("FirstURL").String(),
		})
		return true
	})

	return store.Document{"query": query, "results": results}, nil
}

// docFromResult converts a structured AI reply into a document,
// treating non-object replies like an unavailable provider.
func docFromResult(result gjson.Result, err error) (store.Document, error) {
	if err != nil {
		return nil, err
	}
	m, ok := result.Value().(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected reply shape", ErrAIUnavailable)
	}
	return store.Document(m), nil
}

func (s *IntegrationsService) fetchFitbit(accessToken, date string) (steps, activeMinutes float64, err error) {
	url := fmt.Sprintf("https://api.fitbit.com/1/user/-/activities/date/%s.json", date)
	body, err := s.getJSON(url, accessToken)
	if err != nil {
		return 0, 0, err
	}
	summary := gjson.GetBytes(body, "summary")
	steps = summary.Get("steps").Float()
	activeMinutes = summary.Get("fairlyActiveMinutes").Float() + summary.Get("veryActiveMinutes").Float()
	return steps, activeMinutes, nil
}

func (s *IntegrationsService) fetchGarmin(accessToken string) (steps, activeMinutes float64, err error) {
	body, err := s.getJSON("https://apis.garmin.com/wellness-api/rest/dailies", accessToken)
	if err != nil {
		return 0, 0, err
	}
	latest := gjson.GetBytes(body, "0")
	steps = latest.Get("steps").Float()
	activeMinutes = latest.Get("activeTimeInSeconds").Float() / 60
	return steps, activeMinutes, nil
}

func (s *IntegrationsService) getJSON(url, bearer string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
