package services

import (
	"errors"

	"github.com/vitacoach/coach-backend/internal/store"
)

const appConfigCollection = "app_config"

var ErrConfigNotFound = errors.New("config entry not found")

// AppConfigService exposes server-driven configuration (feature flags,
// minimum app versions, announcement banners) backed by global
// documents.
type AppConfigService struct {
	store store.Store
}

func NewAppConfigService(st store.Store) *AppConfigService {
	return &AppConfigService{store: st}
}

func (s *AppConfigService) Get(key string) (store.Document, error) {
	doc, err := s.store.GetGlobalDoc(appConfigCollection, key)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrConfigNotFound
	}
	return doc, nil
}

func (s *AppConfigService) List(limit int) ([]store.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.QueryGlobalDocs(appConfigCollection, store.Query{Limit: limit})
}

// Set replaces a config entry wholesale; admin only.
func (s *AppConfigService) Set(key string, value store.Document) error {
	_, err := s.store.SetGlobalDoc(appConfigCollection, key, value)
	return err
}

// Patch merges fields into an entry, creating it when absent.
func (s *AppConfigService) Patch(key string, value store.Document) error {
	return s.store.UpdateGlobalDoc(appConfigCollection, key, value)
}

func (s *AppConfigService) Delete(key string) error {
	return s.store.DeleteGlobalDoc(appConfigCollection, key)
}
