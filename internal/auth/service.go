package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/districthq/districthq/internal/shared"
)

// dummyHash is compared against when the account does not exist, so the
// response time does not reveal whether an email is registered.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service verifies credentials.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Login verifies the credentials and returns the account. Unknown
// accounts and bad passwords collapse into ErrInvalidCredentials;
// disabled accounts are reported separately only after the password
// verified.
func (s *Service) Login(ctx context.Context, creds Credentials) (Account, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(creds.Password))
			return Account{}, shared.ErrInvalidCredentials
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.HashedPassword), []byte(creds.Password)); err != nil {
		return Account{}, shared.ErrInvalidCredentials
	}
	if !acct.Active {
		return Account{}, shared.ErrAccountDisabled
	}
	return acct, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
