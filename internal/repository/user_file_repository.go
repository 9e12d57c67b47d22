package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/pkg/storage"
)

// DefaultUsersFile is the credential file name used when none is configured.
const DefaultUsersFile = "users.json"

// userEntry is the on-disk credential layout. Password is only read, to migrate legacy plaintext files.
type userEntry struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"password_hash,omitempty"`
	Password     string          `json:"password,omitempty"`
	Role         models.UserRole `json:"role"`
}

// UserFileRepository keeps credentials in a JSON array next to the student file.
type UserFileRepository struct {
	storage  *storage.LocalStorage
	filename string
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewUserFileRepository constructs a UserFileRepository.
func NewUserFileRepository(store *storage.LocalStorage, filename string, logger *zap.Logger) *UserFileRepository {
	if filename == "" {
		filename = DefaultUsersFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserFileRepository{storage: store, filename: filename, logger: logger}
}

// FindByUsername returns a user by exact username. Missing users yield sql.ErrNoRows.
func (r *UserFileRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			user := users[i]
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

// List returns every stored user ordered by username.
func (r *UserFileRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Count returns the number of stored users.
func (r *UserFileRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// Create appends a new user. Usernames are unique.
func (r *UserFileRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Username == user.Username {
			return fmt.Errorf("create user: username %q already exists", user.Username)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return r.persist(append(users, *user))
}

// UpdatePassword replaces the stored password hash.
func (r *UserFileRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == id {
			users[i].PasswordHash = passwordHash
			return r.persist(users)
		}
	}
	return sql.ErrNoRows
}

// load reads the credential file. A missing file is an empty store; plaintext entries are hashed and rewritten.
func (r *UserFileRepository) load() ([]models.User, error) {
	data, err := r.storage.Read(r.filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.User{}, nil
		}
		return nil, fmt.Errorf("load users: %w", err)
	}

	var entries []userEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("user file malformed, treating as empty", zap.String("file", r.filename), zap.Error(err))
		return []models.User{}, nil
	}

	migrated, assigned := 0, 0
	users := make([]models.User, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
			assigned++
		}
		if entry.PasswordHash == "" && entry.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(entry.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash legacy password: %w", err)
			}
			entry.PasswordHash = string(hash)
			migrated++
		}
		users = append(users, models.User{
			ID:           entry.ID,
			Username:     entry.Username,
			PasswordHash: entry.PasswordHash,
			Role:         entry.Role,
		})
	}

	if migrated > 0 || assigned > 0 {
		if err := r.persist(users); err != nil {
			return nil, err
		}
		r.logger.Info("upgraded legacy credential entries", zap.Int("hashed", migrated), zap.Int("ids_assigned", assigned))
	}
	return users, nil
}

func (r *UserFileRepository) persist(users []models.User) error {
	entries := make([]userEntry, 0, len(users))
	for _, user := range users {
		entries = append(entries, userEntry{
			ID:           user.ID,
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
			Role:         user.Role,
		})
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := r.storage.Save(r.filename, data); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
