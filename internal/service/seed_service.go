package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-enrollment/internal/models"
)

type seedUserRepository interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) error
}

// DefaultAccount is a credential created on first start.
type DefaultAccount struct {
	Username string
	Password string
	Role     models.UserRole
}

// DefaultAccounts returns the admin and staff accounts with the given passwords.
func DefaultAccounts(adminPassword, staffPassword string) []DefaultAccount {
	return []DefaultAccount{
		{Username: "admin", Password: adminPassword, Role: models.RoleAdmin},
		{Username: "staff", Password: staffPassword, Role: models.RoleStaff},
	}
}

// SeedService populates an empty credential store.
type SeedService struct {
	repo     seedUserRepository
	accounts []DefaultAccount
	cost     int
	logger   *zap.Logger
}

// NewSeedService constructs a SeedService.
func NewSeedService(repo seedUserRepository, accounts []DefaultAccount, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{repo: repo, accounts: accounts, cost: bcrypt.DefaultCost, logger: logger}
}

// EnsureDefaultAccounts creates the default accounts when no user exists. It reports how many were created.
func (s *SeedService) EnsureDefaultAccounts(ctx context.Context) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	if total > 0 {
		return 0, nil
	}

	created := 0
	for _, account := range s.accounts {
		if account.Password == "" {
			return created, fmt.Errorf("default password for %s is empty", account.Username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), s.cost)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", account.Username, err)
		}
		user := &models.User{Username: account.Username, PasswordHash: string(hash), Role: account.Role}
		if err := s.repo.Create(ctx, user); err != nil {
			return created, err
		}
		created++
	}

	s.logger.Info("seeded default accounts", zap.Int("count", created))
	return created, nil
}
