package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetUserAbsentReturnsNil(t *testing.T) {
	m := NewMemory()

	doc, err := m.GetUser("nobody")
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestSetUserReplacesWholeDocument(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.SetUser("u1", Document{"email": "a@b.com", "age": 30}))
	require.NoError(t, m.SetUser("u1", Document{"email": "a@b.com"}))

	doc, err := m.GetUser("u1")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", doc["email"])
	require.NotContains(t, doc, "age")
}

func TestUpdateUserMergesShallow(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.SetUser("u1", Document{
		"email": "a@b.com",
		"prefs": map[string]interface{}{"theme": "dark", "lang": "en"},
	}))
	require.NoError(t, m.UpdateUser("u1", Document{
		"age":   31,
		"prefs": map[string]interface{}{"theme": "light"},
	}))

	doc, err := m.GetUser("u1")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", doc["email"])
	require.Equal(t, float64(31), doc["age"])

	// nested objects are replaced wholesale, not deep-merged
	prefs := doc["prefs"].(map[string]interface{})
	require.Equal(t, "light", prefs["theme"])
	require.NotContains(t, prefs, "lang")
}

func TestUserTimestampsTrackWrites(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.SetUser("u1", Document{"email": "a@b.com"}))

	doc, err := m.GetUser("u1")
	require.NoError(t, err)
	created, err := time.Parse(time.RFC3339Nano, doc["created_at"].(string))
	require.NoError(t, err)
	updated, err := time.Parse(time.RFC3339Nano, doc["updated_at"].(string))
	require.NoError(t, err)
	require.False(t, updated.Before(created))

	require.NoError(t, m.UpdateUser("u1", Document{"display_name": "Ada"}))

	doc, err = m.GetUser("u1")
	require.NoError(t, err)
	// creation time is immutable; the update stamp advances
	require.Equal(t, created.Format(time.RFC3339Nano), doc["created_at"])
	updatedAfter, err := time.Parse(time.RFC3339Nano, doc["updated_at"].(string))
	require.NoError(t, err)
	require.True(t, updatedAfter.After(updated))
}

func TestUpdateUserCreatesWhenAbsent(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.UpdateUser("ghost", Document{"display_name": "Ghost"}))

	doc, err := m.GetUser("ghost")
	require.NoError(t, err)
	require.Equal(t, "Ghost", doc["display_name"])
}

func TestSetUserDocIdempotent(t *testing.T) {
	m := NewMemory()

	_, err := m.SetUserDoc("u1", "daily_tracking", "2026-01-15", Document{"steps_count": 5000})
	require.NoError(t, err)
	_, err = m.SetUserDoc("u1", "daily_tracking", "2026-01-15", Document{"steps_count": 7000})
	require.NoError(t, err)

	docs, err := m.QueryUserDocs("u1", "daily_tracking", Query{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, float64(7000), docs[0]["steps_count"])
}

func TestUpdateUserDocUpsertsWhenAbsent(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.UpdateUserDoc("u1", "daily_tracking", "2026-01-15", Document{"notes": "ok"}))

	doc, err := m.GetUserDoc("u1", "daily_tracking", "2026-01-15")
	require.NoError(t, err)
	require.Equal(t, "ok", doc["notes"])
	require.Equal(t, "2026-01-15", doc["_id"])
}

func TestUpdateUserDocPreservesUntouchedKeys(t *testing.T) {
	m := NewMemory()

	_, err := m.SetUserDoc("u1", "daily_tracking", "2026-01-15", Document{
		"steps_count": 5000, "notes": "morning run",
	})
	require.NoError(t, err)
	require.NoError(t, m.UpdateUserDoc("u1", "daily_tracking", "2026-01-15", Document{
		"steps_count": 9000,
	}))

	doc, err := m.GetUserDoc("u1", "daily_tracking", "2026-01-15")
	require.NoError(t, err)
	require.Equal(t, float64(9000), doc["steps_count"])
	require.Equal(t, "morning run", doc["notes"])
}

func TestAddUserDocGeneratesUniqueIDs(t *testing.T) {
	m := NewMemory()

	id1, err := m.AddUserDoc("u1", "health_plans", Document{"plan_name": "a"})
	require.NoError(t, err)
	id2, err := m.AddUserDoc("u1", "health_plans", Document{"plan_name": "b"})
	require.NoError(t, err)

	require.NotEmpty(t, id1)
	require.NotEqual(t, id1, id2)
	require.Len(t, id1, 32)
}

func TestDeleteUserCascades(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.SetUser("u1", Document{"email": "a@b.com"}))
	_, err := m.AddUserDoc("u1", "health_plans", Document{"plan_name": "a"})
	require.NoError(t, err)
	_, err = m.SetUserDoc("u1", "daily_tracking", "2026-01-15", Document{"steps_count": 1})
	require.NoError(t, err)

	// another user's data must survive
	_, err = m.SetUserDoc("u2", "daily_tracking", "2026-01-15", Document{"steps_count": 2})
	require.NoError(t, err)

	require.NoError(t, m.DeleteUser("u1"))

	doc, err := m.GetUser("u1")
	require.NoError(t, err)
	require.Nil(t, doc)

	docs, err := m.QueryUserDocs("u1", "daily_tracking", Query{})
	require.NoError(t, err)
	require.Empty(t, docs)

	other, err := m.GetUserDoc("u2", "daily_tracking", "2026-01-15")
	require.NoError(t, err)
	require.NotNil(t, other)
}

func TestDeleteAbsentDocIsNoError(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.DeleteUserDoc("u1", "daily_tracking", "nope"))
	require.NoError(t, m.DeleteGlobalDoc("app_config", "nope"))
}

func TestQueryFilterBooleanEquality(t *testing.T) {
	m := NewMemory()

	_, err := m.AddUserDoc("u1", "health_plans", Document{"plan_name": "a", "is_active": true})
	require.NoError(t, err)
	_, err = m.AddUserDoc("u1", "health_plans", Document{"plan_name": "b", "is_active": false})
	require.NoError(t, err)

	docs, err := m.QueryUserDocs("u1", "health_plans", Query{
		Filters: map[string]interface{}{"is_active": true},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a", docs[0]["plan_name"])
}

func TestQueryFilterNumericEquality(t *testing.T) {
	m := NewMemory()

	_, err := m.SetUserDoc("u1", "daily_tracking", "d1", Document{"duration": 60})
	require.NoError(t, err)
	_, err = m.SetUserDoc("u1", "daily_tracking", "d2", Document{"duration": 45})
	require.NoError(t, err)

	// int filter value must match the float64 the JSON round-trip produced
	docs, err := m.QueryUserDocs("u1", "daily_tracking", Query{
		Filters: map[string]interface{}{"duration": 60},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "d1", docs[0]["_id"])
}

func TestQueryDefaultOrderNewestFirst(t *testing.T) {
	m := NewMemory()

	for _, name := range []string{"first", "second", "third"} {
		_, err := m.AddUserDoc("u1", "notes", Document{"name": name})
		require.NoError(t, err)
	}

	docs, err := m.QueryUserDocs("u1", "notes", Query{})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, "third", docs[0]["name"])
	require.Equal(t, "first", docs[2]["name"])
}

func TestQueryOrderByFieldAscending(t *testing.T) {
	m := NewMemory()

	for _, date := range []string{"2026-01-03", "2026-01-01", "2026-01-02"} {
		_, err := m.SetUserDoc("u1", "daily_tracking", date, Document{"date": date})
		require.NoError(t, err)
	}

	docs, err := m.QueryUserDocs("u1", "daily_tracking", Query{
		OrderBy: "date", OrderDir: "ASC",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-01-01", docs[0]["date"])
	require.Equal(t, "2026-01-03", docs[2]["date"])
}

func TestQueryLimitTruncates(t *testing.T) {
	m := NewMemory()

	for i := 0; i < 5; i++ {
		_, err := m.AddUserDoc("u1", "notes", Document{"i": i})
		require.NoError(t, err)
	}

	docs, err := m.QueryUserDocs("u1", "notes", Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// newest first
	require.Equal(t, float64(4), docs[0]["i"])
}

func TestQueryCollectionGroupSpansUsers(t *testing.T) {
	m := NewMemory()

	_, err := m.SetUserDoc("u1", "notifications", "n1", Document{"status": "pending"})
	require.NoError(t, err)
	_, err = m.SetUserDoc("u2", "notifications", "n2", Document{"status": "pending"})
	require.NoError(t, err)
	_, err = m.SetUserDoc("u2", "notifications", "n3", Document{"status": "sent"})
	require.NoError(t, err)

	docs, err := m.QueryCollectionGroup("notifications", Query{
		Filters: map[string]interface{}{"status": "pending"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		require.Contains(t, d, "_user_id")
		require.Contains(t, d, "_id")
	}
}

func TestGlobalDocsRoundTrip(t *testing.T) {
	m := NewMemory()

	_, err := m.SetGlobalDoc("app_config", "feature_flags", Document{"chat_enabled": true})
	require.NoError(t, err)
	require.NoError(t, m.UpdateGlobalDoc("app_config", "feature_flags", Document{"min_version": "2.1.0"}))

	doc, err := m.GetGlobalDoc("app_config", "feature_flags")
	require.NoError(t, err)
	require.Equal(t, true, doc["chat_enabled"])
	require.Equal(t, "2.1.0", doc["min_version"])

	all, err := m.QueryGlobalDocs("app_config", Query{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, m.DeleteGlobalDoc("app_config", "feature_flags"))
	doc, err = m.GetGlobalDoc("app_config", "feature_flags")
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestValidationRejectsBadIdentifiers(t *testing.T) {
	m := NewMemory()

	_, err := m.GetUser("")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = m.GetUserDoc("u1", "bad-collection!", "d1")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = m.QueryUserDocs("u1", "notes", Query{
		Filters: map[string]interface{}{"bad';drop": 1},
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = m.QueryUserDocs("u1", "notes", Query{OrderDir: "sideways"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStringifyFilterValue(t *testing.T) {
	require.Equal(t, "true", stringifyFilterValue(true))
	require.Equal(t, "false", stringifyFilterValue(false))
	require.Equal(t, "60", stringifyFilterValue(float64(60)))
	require.Equal(t, "60.5", stringifyFilterValue(60.5))
	require.Equal(t, "60", stringifyFilterValue(60))
	require.Equal(t, "hello", stringifyFilterValue("hello"))
}

func TestShallowMergeDoesNotMutateInputs(t *testing.T) {
	base := Document{"a": 1, "nested": map[string]interface{}{"x": 1}}
	incoming := Document{"b": 2}

	merged := shallowMerge(base, incoming)
	require.Contains(t, merged, "a")
	require.Contains(t, merged, "b")
	require.NotContains(t, base, "b")
}
