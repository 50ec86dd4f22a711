package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/pkg/utils"
)

const (
	maxUserNameLength = 255
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordBytes = 72
)

// RegisterInput holds a self-registration request
type RegisterInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// AuthService registers and authenticates users
type AuthService interface {
	// Register creates an account with the employee role
	Register(ctx context.Context, input RegisterInput) (*entity.User, error)

	// Login checks credentials by username or email and issues an access token
	Login(ctx context.Context, login, password string) (*LoginResult, error)

	// Authenticate turns an access token into the caller identity
	Authenticate(ctx context.Context, token string) (access.Identity, error)

	// Me returns the caller's account
	Me(ctx context.Context, caller access.Identity) (*entity.User, error)

	// EnsureUser creates the account if neither its username nor email exists yet
	EnsureUser(ctx context.Context, input RegisterInput, role string) (*entity.User, bool, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	hasher   port.PasswordHasher
	tokens   port.TokenIssuer
	policy   *access.Policy
	logger   Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo port.UserRepository,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	policy *access.Policy,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		policy:   policy,
		logger:   logger,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	return s.createUser(ctx, input, entity.RoleEmployee)
}

func (s *authServiceImpl) createUser(ctx context.Context, input RegisterInput, role string) (*entity.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	v := newValidationError()
	v.check("name", utils.ValidateRequired(input.Name, maxUserNameLength))
	v.check("username", utils.ValidateUsername(input.Username))
	v.check("email", utils.ValidateEmail(input.Email))
	switch {
	case len(input.Password) < minPasswordLength:
		v.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(input.Password) > maxPasswordBytes:
		v.add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if !s.policy.HasRole(role) {
		v.add("role", "is not a known role")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, port.ErrDuplicate) {
			return nil, fmt.Errorf("username or email already registered: %w", ErrDuplicate)
		}
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username, "role", role)
	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password are required", ErrUnauthorized)
	}

	user, err := s.userRepo.GetByLogin(ctx, login)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.logger.Info("Login rejected", "user_id", user.ID)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (access.Identity, error) {
	if token == "" {
		return access.Identity{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	identity, err := s.tokens.Parse(token)
	if err != nil {
		return access.Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if identity.UserID == 0 || !s.policy.HasRole(identity.Role) {
		return access.Identity{}, fmt.Errorf("%w: token carries no valid identity", ErrUnauthorized)
	}
	return identity, nil
}

func (s *authServiceImpl) Me(ctx context.Context, caller access.Identity) (*entity.User, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, caller.UserID)
}

func (s *authServiceImpl) EnsureUser(ctx context.Context, input RegisterInput, role string) (*entity.User, bool, error) {
	for _, login := range []string{input.Username, input.Email} {
		existing, err := s.userRepo.GetByLogin(ctx, strings.TrimSpace(login))
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, port.ErrNotFound) {
			return nil, false, err
		}
	}

	user, err := s.createUser(ctx, input, role)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
