package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

func boolPtr(v bool) *bool { return &v }

func newNotificationFixture(t *testing.T) (*NotificationService, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	// no FCM key: pushes are logged, not sent over the wire
	svc := NewNotificationService(st, &config.Config{})
	require.NoError(t, st.SetUser("u1", store.Document{"email": "a@b.com"}))
	return svc, st
}

func TestRegisterDeviceStoresToken(t *testing.T) {
	svc, st := newNotificationFixture(t)

	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))

	profile, err := st.GetUser("u1")
	require.NoError(t, err)
	require.Equal(t, "tok-123", profile["device_token"])
}

func TestSendWithoutDeviceFails(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	result, err := svc.Send("u1", &dto.NotificationRequest{
		Title: "Hi", Message: "there",
	})
	require.ErrorIs(t, err, ErrNoDeviceToken)
	require.Equal(t, "failed", result["status"])
}

func TestSendImmediateRecordsHistory(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))

	result, err := svc.Send("u1", &dto.NotificationRequest{
		Title: "Water break", Message: "Time to hydrate", Type: "meal_reminders",
	})
	require.NoError(t, err)
	require.Equal(t, "sent", result["status"])

	history, err := svc.History("u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestSendScheduledStaysPending(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	result, err := svc.Send("u1", &dto.NotificationRequest{
		Title: "Later", Message: "scheduled", ScheduledAt: future,
	})
	require.NoError(t, err)
	require.Equal(t, "pending", result["status"])
}

func TestDispatchDueSendsOnlyElapsed(t *testing.T) {
	svc, st := newNotificationFixture(t)
	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))

	past := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)

	due, err := svc.Send("u1", &dto.NotificationRequest{
		Title: "Due", Message: "now", ScheduledAt: past,
	})
	require.NoError(t, err)
	_, err = svc.Send("u1", &dto.NotificationRequest{
		Title: "Later", Message: "not yet", ScheduledAt: future,
	})
	require.NoError(t, err)

	count, err := svc.DispatchDue()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	sent, err := st.GetUserDoc("u1", "notifications", due["_id"].(string))
	require.NoError(t, err)
	require.Equal(t, "sent", sent["status"])

	// second cycle finds nothing left to do
	count, err = svc.DispatchDue()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestPreferencesRebuildSchedule(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	result, err := svc.UpdatePreferences("u1", &dto.NotificationPreferences{
		ExerciseReminders:    boolPtr(false),
		MotivationalMessages: boolPtr(true),
	})
	require.NoError(t, err)

	schedule := result["schedule"].([]store.Document)
	var kinds []string
	for _, entry := range schedule {
		kinds = append(kinds, entry["type"].(string))
	}
	require.Contains(t, kinds, "meal_reminders")
	require.Contains(t, kinds, "motivational_messages")
	require.NotContains(t, kinds, "exercise_reminders")
	// meal reminders keep their three daily slots
	require.Len(t, schedule, 4)
}

func TestScheduleForDefaultsOn(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	schedule := svc.ScheduleFor(store.Document{})
	require.Len(t, schedule, 5)
}

func TestMarkReadFlagsNotification(t *testing.T) {
	svc, st := newNotificationFixture(t)
	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))

	sent, err := svc.Send("u1", &dto.NotificationRequest{
		Title: "Hi", Message: "there",
	})
	require.NoError(t, err)
	id := sent["_id"].(string)

	count, err := svc.UnreadCount("u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err := svc.MarkRead("u1", id)
	require.NoError(t, err)
	require.Equal(t, true, updated["read"])

	count, err = svc.UnreadCount("u1")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	stored, err := st.GetUserDoc("u1", "notifications", id)
	require.NoError(t, err)
	require.NotEmpty(t, stored["read_at"])
}

func TestMarkReadMissingNotification(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	_, err := svc.MarkRead("u1", "nope")
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestDeleteNotification(t *testing.T) {
	svc, st := newNotificationFixture(t)
	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))

	sent, err := svc.Send("u1", &dto.NotificationRequest{
		Title: "Hi", Message: "there",
	})
	require.NoError(t, err)
	id := sent["_id"].(string)

	require.NoError(t, svc.Delete("u1", id))

	doc, err := st.GetUserDoc("u1", "notifications", id)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestScheduleDailyWritesPendingReminders(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))

	scheduled, err := svc.ScheduleDaily("u1")
	require.NoError(t, err)
	require.Len(t, scheduled, 5) // all toggles default on

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	for _, doc := range scheduled {
		require.Equal(t, "pending", doc["status"])
		at, err := time.Parse(time.RFC3339, doc["scheduled_at"].(string))
		require.NoError(t, err)
		require.Equal(t, tomorrow.Day(), at.Day())
	}

	// nothing is due yet, so the dispatcher leaves them alone
	count, err := svc.DispatchDue()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestScheduleDailyHonorsToggles(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	_, err := svc.UpdatePreferences("u1", &dto.NotificationPreferences{
		MealReminders: boolPtr(false),
	})
	require.NoError(t, err)

	scheduled, err := svc.ScheduleDaily("u1")
	require.NoError(t, err)
	require.Len(t, scheduled, 2) // exercise + motivational only
}

func TestSendBulkCountsFailures(t *testing.T) {
	svc, st := newNotificationFixture(t)
	require.NoError(t, svc.RegisterDevice("u1", "tok-123", "ios"))
	require.NoError(t, st.SetUser("u2", store.Document{})) // no device

	result, err := svc.SendBulk(&dto.BulkNotificationRequest{
		UserIDs: []string{"u1", "u2"},
		Title:   "Hello", Message: "all",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result["sent"])
	require.Equal(t, 1, result["failed"])
}
