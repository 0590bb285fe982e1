package service

import (
	"context"
	"strings"
	"time"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
	"github.com/Vishalkumjan/realtime-code-collab/internal/security"
)

type AuthService struct {
	userRepo *postgres.UserRepository
	signer   *security.JWTSigner
}

func NewAuthService(userRepo *postgres.UserRepository, signer *security.JWTSigner) *AuthService {
	return &AuthService{userRepo: userRepo, signer: signer}
}

// Register creates the account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", domain.ErrInvalidArgument
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	u := &domain.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.signer.SignAccessToken(u.ID, u.DisplayName, time.Now())
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GetUser resolves the account behind a validated token subject.
func (s *AuthService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if err := security.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, "", domain.ErrWrongPassword
	}

	token, err := s.signer.SignAccessToken(u.ID, u.DisplayName, time.Now())
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
