package authentication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	authcontext "github.com/dailytribune/tribune/authentication/context"
	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/random"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const ServiceName = "github.com/dailytribune/tribune/authentication"

const ActionSetRole = "setRole"

const (
	defaultSessionDuration = 30 * 24 * time.Hour

	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

type Service struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	authzClient *authorization.Client
	now         func() time.Time
}

func NewService(userRepo UserRepository, sessionRepo SessionRepository, authzClient *authorization.Client) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		authzClient: authzClient,
		now:         time.Now,
	}
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

func validateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return InvalidInputError{
			Field:   "username",
			Message: fmt.Sprintf("must be between %d and %d characters", minUsernameLength, maxUsernameLength),
		}
	}

	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return InvalidInputError{
			Field:   "password",
			Message: fmt.Sprintf("must be between %d and %d bytes", minPasswordLength, maxPasswordLength),
		}
	}

	return nil
}

// Register creates a reader account and grants it the authenticated and
// reader groups.
func (svc *Service) Register(ctx context.Context, username, password string) (*User, error) {
	err := validateCredentials(username, password)
	if err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         RoleReader,
		RegisteredAt: svc.now().UTC(),
	}

	err = svc.userRepo.Insert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	err = svc.authzClient.AddToGroup(ctx, user.ID, authcontext.Authenticated, user.Role.Group())
	if err != nil {
		return nil, fmt.Errorf("failed to add user to groups: %w", err)
	}

	slog.InfoContext(ctx, "user registered", "userId", user.ID, "username", user.Username)

	user.PasswordHash = ""

	return user, nil
}

func (svc *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var notFoundErr UserByUsernameNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	timeNow := svc.now().UTC()

	session := &Session{
		ID:        random.Token(),
		UserID:    user.ID,
		CreatedAt: timeNow,
		ExpiresAt: timeNow.Add(defaultSessionDuration),
	}

	err = svc.sessionRepo.Insert(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	err := svc.sessionRepo.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (svc *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := svc.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.ExpiresAt.Before(svc.now()) {
		err = svc.sessionRepo.Delete(ctx, sessionID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete expired session", "error", err)
		}

		return nil, SessionExpiredError{ID: sessionID, ExpiredAt: session.ExpiresAt}
	}

	return session, nil
}

func (svc *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.PasswordHash = ""

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	sub := authcontext.GetSubject(ctx)
	if sub == authcontext.Anonymous {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}

// SetRole changes a user's role and moves the user to the matching
// authorization group.
func (svc *Service) SetRole(ctx context.Context, userID string, role Role) (*User, error) {
	if !role.IsValid() {
		return nil, InvalidRoleError{Role: role}
	}

	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.PasswordHash = ""

	if user.Role == role {
		return user, nil
	}

	err = svc.userRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	err = svc.authzClient.RemoveFromGroup(ctx, userID, user.Role.Group())
	if err != nil {
		return nil, fmt.Errorf("failed to remove previous role group: %w", err)
	}

	err = svc.authzClient.AddToGroup(ctx, userID, role.Group())
	if err != nil {
		return nil, fmt.Errorf("failed to add role group: %w", err)
	}

	slog.InfoContext(ctx, "user role changed", "userId", userID, "from", user.Role, "to", role)

	user.Role = role

	return user, nil
}

// EnsureUser registers username when it does not exist yet and gives it
// role. It is used to bootstrap the first administrator.
func (svc *Service) EnsureUser(ctx context.Context, username, password string, role Role) (*User, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var notFoundErr UserByUsernameNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to find user by username: %w", err)
		}

		user, err = svc.Register(ctx, username, password)
		if err != nil {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
	}

	return svc.SetRole(ctx, user.ID, role)
}
