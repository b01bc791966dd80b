package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/store"
)

func TestAppConfigSetAndGet(t *testing.T) {
	svc := NewAppConfigService(store.NewMemory())

	require.NoError(t, svc.Set("feature_flags", store.Document{"chat_enabled": true}))

	doc, err := svc.Get("feature_flags")
	require.NoError(t, err)
	require.Equal(t, true, doc["chat_enabled"])
}

func TestAppConfigSetReplacesWholesale(t *testing.T) {
	svc := NewAppConfigService(store.NewMemory())

	require.NoError(t, svc.Set("banner", store.Document{"text": "hello", "level": "info"}))
	require.NoError(t, svc.Set("banner", store.Document{"text": "bye"}))

	doc, err := svc.Get("banner")
	require.NoError(t, err)
	require.Equal(t, "bye", doc["text"])
	require.NotContains(t, doc, "level")
}

func TestAppConfigPatchMerges(t *testing.T) {
	svc := NewAppConfigService(store.NewMemory())

	require.NoError(t, svc.Set("versions", store.Document{"min_ios": "1.2.0"}))
	require.NoError(t, svc.Patch("versions", store.Document{"min_android": "1.1.0"}))

	doc, err := svc.Get("versions")
	require.NoError(t, err)
	require.Equal(t, "1.2.0", doc["min_ios"])
	require.Equal(t, "1.1.0", doc["min_android"])
}

func TestAppConfigMissingKey(t *testing.T) {
	svc := NewAppConfigService(store.NewMemory())

	_, err := svc.Get("nope")
	require.ErrorIs(t, err, ErrConfigNotFound)

	require.NoError(t, svc.Delete("nope"))
}
