package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/models"
	"github.com/vitacoach/coach-backend/internal/store"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthService struct {
	db    *gorm.DB
	store store.Store
	cfg   *config.Config
}

func NewAuthService(db *gorm.DB, st store.Store, cfg *config.Config) *AuthService {
	return &AuthService{db: db, store: st, cfg: cfg}
}

func (s *AuthService) Register(email, password, displayName, phoneNumber string) (string, string, error) {
	if email == "" || len(password) < 8 {
		return "", "", errors.New("email required and password must be at least 8 characters")
	}

	var existing models.Credential
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return "", "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.NewString()
	cred := models.Credential{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&cred).Error; err != nil {
		return "", "", fmt.Errorf("failed to create credential: %w", err)
	}

	profile := store.Document{
		"uid":            userID,
		"email":          email,
		"display_name":   displayName,
		"phone_number":   phoneNumber,
		"email_verified": false,
	}
	if err := s.store.SetUser(userID, profile); err != nil {
		return "", "", fmt.Errorf("failed to create user profile: %w", err)
	}

	token, err := s.GenerateToken(userID)
	if err != nil {
		return "", "", err
	}
	return userID, token, nil
}

func (s *AuthService) Login(email, password string) (string, string, error) {
	var cred models.Credential
	if err := s.db.Where("email = ?", email).First(&cred).Error; err != nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	if err := s.store.UpdateUser(cred.UserID, store.Document{
		"last_login": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return "", "", fmt.Errorf("failed to record login: %w", err)
	}

	token, err := s.GenerateToken(cred.UserID)
	if err != nil {
		return "", "", err
	}
	return cred.UserID, token, nil
}

// GenerateToken issues a signed HS256 access token for a user id.
func (s *AuthService) GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) GetProfile(userID string) (store.Document, error) {
	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

func (s *AuthService) UpdateProfile(userID string, updates store.Document) error {
	// Credentials never travel through the profile document.
	delete(updates, "uid")
	delete(updates, "password")
	return s.store.UpdateUser(userID, updates)
}

func (s *AuthService) DeleteAccount(userID, password string) error {
	var cred models.Credential
	if err := s.db.Where("user_id = ?", userID).First(&cred).Error; err != nil {
		return ErrUserNotFound
	}

	if password == "" {
		return errors.New("password is required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	// The store cascade removes the profile and every sub-collection
	// document; the credential row goes separately.
	if err := s.store.DeleteUser(userID); err != nil {
		return err
	}
	return s.db.Delete(&cred).Error
}
