package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"story-endings/internal/model"
	"story-endings/internal/repository"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// UserStore persists accounts. Create must return repository.ErrDuplicateUsername
// when the username is already taken.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// AuthService is the credential store: it owns password hashing and username uniqueness.
type AuthService struct {
	userRepo  UserStore
	hashCost  int
	dummyHash []byte
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

func NewAuthService(userRepo UserStore, hashCost int) *AuthService {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	// Compared against when the user does not exist, so both login failures cost the same.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("story-endings-dummy"), hashCost)
	return &AuthService{
		userRepo:  userRepo,
		hashCost:  hashCost,
		dummyHash: dummy,
	}
}

// NormalizeUsername is applied to every username before it is compared or stored.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := NormalizeUsername(input.Username)
	if !usernamePattern.MatchString(username) {
		return nil, invalidInput("username must be 3-32 letters, digits or underscores")
	}
	if input.Password == "" || len(input.Password) > maxPasswordBytes {
		return nil, invalidInput("password must be 1-%d bytes", maxPasswordBytes)
	}

	// Fast path only; the unique index is what actually guarantees uniqueness.
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Verify reports whether password matches the stored hash for username.
// Unknown users yield false without an error.
func (s *AuthService) Verify(ctx context.Context, username, password string) (bool, error) {
	user, err := s.userRepo.GetByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return false, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

// Authenticate returns ErrInvalidCredential for both unknown users and wrong passwords.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*model.User, error) {
	username := NormalizeUsername(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidCredential
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(input.Password))
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return user, nil
}

func (s *AuthService) Exists(ctx context.Context, username string) (bool, error) {
	return s.userRepo.ExistsByUsername(ctx, NormalizeUsername(username))
}
