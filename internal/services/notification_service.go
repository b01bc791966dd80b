package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const notificationCollection = "notifications"

var (
	ErrNoDeviceToken        = errors.New("no device token registered")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Default reminder times, local to the user's day.
var defaultSchedule = map[string][]string{
	"meal_reminders":        {"08:00", "13:00", "19:00"},
	"exercise_reminders":    {"18:00"},
	"motivational_messages": {"20:00"},
}

type NotificationService struct {
	store      store.Store
	cfg        *config.Config
	httpClient *http.Client
}

func NewNotificationService(st store.Store, cfg *config.Config) *NotificationService {
	return &NotificationService{
		store:      st,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterDevice stores the push token on the user profile. One token
// per user; a new registration replaces the old device.
func (s *NotificationService) RegisterDevice(userID, token, platform string) error {
	if token == "" {
		return errors.New("device token is required")
	}
	return s.store.UpdateUser(userID, store.Document{
		"device_token":    token,
		"device_platform": platform,
	})
}

// Send delivers a notification immediately, or schedules it when the
// request carries a future scheduled_at.
func (s *NotificationService) Send(userID string, req *dto.NotificationRequest) (store.Document, error) {
	if req.Title == "" || req.Message == "" {
		return nil, errors.New("title and message are required")
	}

	doc := store.Document{
		"title":   req.Title,
		"message": req.Message,
		"type":    req.Type,
		"status":  "pending",
		"read":    false,
	}
	if req.Data != nil {
		doc["data"] = req.Data
	}

	if req.ScheduledAt != "" {
		at, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("scheduled_at must be RFC3339: %w", err)
		}
		doc["scheduled_at"] = at.UTC().Format(time.RFC3339)
		id, err := s.store.AddUserDoc(userID, notificationCollection, doc)
		if err != nil {
			return nil, err
		}
		doc["_id"] = id
		return doc, nil
	}

	if err := s.push(userID, req.Title, req.Message, req.Data); err != nil {
		doc["status"] = "failed"
		doc["error"] = err.Error()
	} else {
		doc["status"] = "sent"
		doc["sent_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	id, err := s.store.AddUserDoc(userID, notificationCollection, doc)
	if err != nil {
		return nil, err
	}
	doc["_id"] = id
	if st, _ := doc["status"].(string); st == "failed" {
		return doc, ErrNoDeviceToken
	}
	return doc, nil
}

// SendBulk pushes one message to many users; failures are counted, not fatal.
func (s *NotificationService) SendBulk(req *dto.BulkNotificationRequest) (store.Document, error) {
	if len(req.UserIDs) == 0 {
		return nil, errors.New("user_ids is required")
	}

	sent, failed := 0, 0
	for _, uid := range req.UserIDs {
		_, err := s.Send(uid, &dto.NotificationRequest{
			Title:   req.Title,
			Message: req.Message,
			Type:    req.Type,
			Data:    req.Data,
		})
		if err != nil {
			failed++
			continue
		}
		sent++
	}
	return store.Document{"sent": sent, "failed": failed}, nil
}

func (s *NotificationService) History(userID string, limit int) ([]store.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.QueryUserDocs(userID, notificationCollection, store.Query{Limit: limit})
}

// MarkRead flags a delivered notification as read.
func (s *NotificationService) MarkRead(userID, notificationID string) (store.Document, error) {
	doc, err := s.store.GetUserDoc(userID, notificationCollection, notificationID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotificationNotFound
	}
	update := store.Document{
		"read":    true,
		"read_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.UpdateUserDoc(userID, notificationCollection, notificationID, update); err != nil {
		return nil, err
	}
	for k, v := range update {
		doc[k] = v
	}
	return doc, nil
}

// UnreadCount counts notifications the user has not opened yet.
func (s *NotificationService) UnreadCount(userID string) (int, error) {
	docs, err := s.store.QueryUserDocs(userID, notificationCollection, store.Query{
		Filters: map[string]interface{}{"read": false},
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *NotificationService) Delete(userID, notificationID string) error {
	return s.store.DeleteUserDoc(userID, notificationCollection, notificationID)
}

// ScheduleDaily writes tomorrow's reminder notifications as pending
// scheduled documents, honoring the user's preference toggles.
func (s *NotificationService) ScheduleDaily(userID string) ([]store.Document, error) {
	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	prefs := store.Document{}
	if profile != nil {
		if existing, ok := profile["notification_preferences"].(map[string]interface{}); ok {
			prefs = existing
		}
	}

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	var scheduled []store.Document
	for _, slot := range s.ScheduleFor(prefs) {
		kind, _ := slot["type"].(string)
		at, _ := slot["time"].(string)
		var hh, mm int
		if _, err := fmt.Sscanf(at, "%d:%d", &hh, &mm); err != nil {
			continue
		}
		when := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hh, mm, 0, 0, time.UTC)
		doc := store.Document{
			"title":        reminderTitle(kind),
			"message":      reminderMessage(kind),
			"type":         kind,
			"status":       "pending",
			"read":         false,
			"scheduled_at": when.Format(time.RFC3339),
		}
		id, err := s.store.AddUserDoc(userID, notificationCollection, doc)
		if err != nil {
			return nil, err
		}
		doc["_id"] = id
		scheduled = append(scheduled, doc)
	}
	return scheduled, nil
}

func reminderTitle(kind string) string {
	switch kind {
	case "meal_reminders":
		return "Meal time"
	case "exercise_reminders":
		return "Time to move"
	case "motivational_messages":
		return "Daily check-in"
	default:
		return "Reminder"
	}
}

func reminderMessage(kind string) string {
	switch kind {
	case "meal_reminders":
		return "Don't forget to log your meal."
	case "exercise_reminders":
		return "A short workout still counts. Log it when you're done."
	case "motivational_messages":
		return "Small steps every day add up. How did today go?"
	default:
		return "You have a reminder."
	}
}

// UpdatePreferences merges toggles into the profile and rebuilds the
// user's daily reminder schedule from them.
func (s *NotificationService) UpdatePreferences(userID string, prefs *dto.NotificationPreferences) (store.Document, error) {
	current := store.Document{}
	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		if existing, ok := profile["notification_preferences"].(map[string]interface{}); ok {
			for k, v := range existing {
				current[k] = v
			}
		}
	}

	if prefs.MealReminders != nil {
		current["meal_reminders"] = *prefs.MealReminders
	}
	if prefs.ExerciseReminders != nil {
		current["exercise_reminders"] = *prefs.ExerciseReminders
	}
	if prefs.MotivationalMessages != nil {
		current["motivational_messages"] = *prefs.MotivationalMessages
	}
	if prefs.ProgressUpdates != nil {
		current["progress_updates"] = *prefs.ProgressUpdates
	}

	if err := s.store.UpdateUser(userID, store.Document{
		"notification_preferences": map[string]interface{}(current),
	}); err != nil {
		return nil, err
	}
	return store.Document{
		"preferences": map[string]interface{}(current),
		"schedule":    s.ScheduleFor(current),
	}, nil
}

// ScheduleFor lists the reminder times enabled by a preference set.
// Toggles default to on when never set.
func (s *NotificationService) ScheduleFor(prefs store.Document) []store.Document {
	enabled := func(key string) bool {
		if v, ok := prefs[key].(bool); ok {
			return v
		}
		return true
	}

	var out []store.Document
	for _, kind := range []string{"meal_reminders", "exercise_reminders", "motivational_messages"} {
		if !enabled(kind) {
			continue
		}
		for _, at := range defaultSchedule[kind] {
			out = append(out, store.Document{"type": kind, "time": at})
		}
	}
	return out
}

// DispatchDue finds every pending scheduled notification across all
// users whose time has come and pushes it. The cron dispatcher calls
// this once a minute.
func (s *NotificationService) DispatchDue() (int, error) {
	docs, err := s.store.QueryCollectionGroup(notificationCollection, store.Query{
		Filters: map[string]interface{}{"status": "pending"},
		Limit:   500,
	})
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	dispatched := 0
	for _, doc := range docs {
		scheduledAt, _ := doc["scheduled_at"].(string)
		if scheduledAt == "" {
			continue
		}
		at, err := time.Parse(time.RFC3339, scheduledAt)
		if err != nil || at.After(now) {
			continue
		}

		userID, _ := doc["_user_id"].(string)
		docID, _ := doc["_id"].(string)
		if userID == "" || docID == "" {
			continue
		}

		title, _ := doc["title"].(string)
		message, _ := doc["message"].(string)
		data, _ := doc["data"].(map[string]interface{})

		update := store.Document{"status": "sent", "sent_at": now.Format(time.RFC3339)}
		if err := s.push(userID, title, message, data); err != nil {
			slog.Warn("scheduled notification failed",
				"user_id", userID, "notification_id", docID, "error", err)
			update["status"] = "failed"
			update["error"] = err.Error()
		} else {
			dispatched++
		}
		if err := s.store.UpdateUserDoc(userID, notificationCollection, docID, update); err != nil {
			slog.Error("failed to mark notification", "notification_id", docID, "error", err)
		}
	}
	return dispatched, nil
}

type fcmPayload struct {
	To           string                 `json:"to"`
	Notification map[string]string      `json:"notification"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// push delivers via FCM's legacy HTTP API. Without a server key it
// logs and reports success so development setups work end to end.
func (s *NotificationService) push(userID, title, message string, data map[string]interface{}) error {
	profile, err := s.store.GetUser(userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrUserNotFound
	}
	token, _ := profile["device_token"].(string)
	if token == "" {
		return ErrNoDeviceToken
	}

	if s.cfg.FCMServerKey == "" {
		slog.Info("push skipped, no FCM key configured", "user_id", userID, "title", title)
		return nil
	}

	body, err := json.Marshal(fcmPayload{
		To:           token,
		Notification: map[string]string{"title": title, "body": message},
		Data:         data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.FCMAPIURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.cfg.FCMServerKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode)
	}
	return nil
}
