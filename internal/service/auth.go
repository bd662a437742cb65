package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/appwrite/sdk-for-go/id"
	"github.com/appwrite/sdk-for-go/models"
	"github.com/appwrite/sdk-for-go/query"

	"github.com/sumire/storeit/internal/backend"
	"github.com/sumire/storeit/internal/domain"
	"github.com/sumire/storeit/internal/repository"
)

// MsgUserNotFound is the message returned to sign-in attempts for unknown emails.
const MsgUserNotFound = "User not found"

// AuthConfig holds the platform resources the auth flow touches.
type AuthConfig struct {
	// AvatarPlaceholderURL is stored as the avatar of new users. When empty an
	// initials avatar URL is generated from the full name.
	AvatarPlaceholderURL string
	// BucketID is the file bucket checked by Ready. Optional.
	BucketID string
}

// AuthService implements the email OTP sign-up and sign-in actions.
type AuthService struct {
	clients *backend.Factory
	users   *repository.UserRepository
	cfg     AuthConfig
	log     *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(clients *backend.Factory, users *repository.UserRepository, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		clients: clients,
		users:   users,
		cfg:     cfg,
		log:     logger,
	}
}

// CreateAccountInput is the sign-up request.
type CreateAccountInput struct {
	FullName string
	Email    string
}

// AccountResult carries the platform account the emailed code belongs to.
type AccountResult struct {
	AccountID string `json:"accountId"`
}

// VerifyInput is the OTP submitted for an account.
type VerifyInput struct {
	AccountID string
	OTP       string
}

// SignInResult is the outcome of a sign-in attempt. AccountID is nil and
// Error is set when no user exists for the email.
type SignInResult struct {
	AccountID *string `json:"accountId"`
	Error     string  `json:"error,omitempty"`
}

// GetUserByEmail returns the user registered with email, or nil.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	admin := s.clients.CreateAdminClient()
	user, err := s.users.FindByEmail(admin.Databases(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SendEmailOTP asks the platform to email a one-time code and returns the
// account the code was issued for.
func (s *AuthService) SendEmailOTP(ctx context.Context, email string) (string, error) {
	admin := s.clients.CreateAdminClient()
	token, err := admin.Account().CreateEmailToken(id.Unique(), email)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to send email OTP", "email", email, "error", err)
		return "", fmt.Errorf("send email otp: %w", backend.Error(err))
	}
	return token.UserId, nil
}

// CreateAccount sends a sign-up code to in.Email and creates the user
// document when the email is not registered yet. Every call sends a new code.
func (s *AuthService) CreateAccount(ctx context.Context, in CreateAccountInput) (*AccountResult, error) {
	existing, err := s.GetUserByEmail(ctx, in.Email)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to look up user", "email", in.Email, "error", err)
		return nil, fmt.Errorf("create account: %w", err)
	}

	accountID, err := s.SendEmailOTP(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if accountID == "" {
		return nil, errors.New("create account: failed to send an OTP")
	}

	if existing == nil {
		admin := s.clients.CreateAdminClient()
		avatar := s.cfg.AvatarPlaceholderURL
		if avatar == "" {
			avatar = admin.InitialsURL(in.FullName)
		}

		user, err := s.users.Create(admin.Databases(), domain.NewUser{
			FullName:  in.FullName,
			Email:     in.Email,
			Avatar:    avatar,
			AccountID: accountID,
		})
		if err != nil {
			s.log.ErrorContext(ctx, "failed to create user", "email", in.Email, "error", err)
			return nil, fmt.Errorf("create account: %w", err)
		}
		s.log.InfoContext(ctx, "user created", "user_id", user.ID, "account_id", accountID)
	}

	return &AccountResult{AccountID: accountID}, nil
}

// VerifySecret exchanges an emailed code for a platform session. The caller
// stores the returned session secret as the session cookie.
func (s *AuthService) VerifySecret(ctx context.Context, in VerifyInput) (*domain.Session, error) {
	admin := s.clients.CreateAdminClient()
	session, err := admin.Account().CreateSession(in.AccountID, in.OTP)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to verify OTP", "account_id", in.AccountID, "error", err)
		return nil, fmt.Errorf("verify secret: %w", backend.Error(err))
	}
	return toSession(session), nil
}

func toSession(m *models.Session) *domain.Session {
	session := &domain.Session{
		ID:      m.Id,
		UserID:  m.UserId,
		Secret:  m.Secret,
		Current: m.Current,
	}
	if expire, err := time.Parse(time.RFC3339Nano, m.Expire); err == nil {
		session.Expire = expire
	}
	return session
}

// GetCurrentUser returns the user owning the session secret. It returns nil
// when the secret is empty or invalid, or when no user document exists; the
// failure is logged, never returned.
func (s *AuthService) GetCurrentUser(ctx context.Context, secret string) *domain.User {
	sc, err := s.clients.CreateSessionClient(secret)
	if err != nil {
		return nil
	}

	identity, err := sc.Account().Get()
	if err != nil {
		s.log.InfoContext(ctx, "session rejected", "error", err)
		return nil
	}

	user, err := s.users.FindByAccountID(sc.Databases(), identity.Id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "failed to load current user", "account_id", identity.Id, "error", err)
		}
		return nil
	}
	return user
}

// SignOutUser deletes the current platform session. Failures are logged
// only; the caller always drops the cookie and redirects.
func (s *AuthService) SignOutUser(ctx context.Context, secret string) {
	sc, err := s.clients.CreateSessionClient(secret)
	if err != nil {
		s.log.InfoContext(ctx, "sign out without session")
		return
	}
	if _, err := sc.Account().DeleteSession("current"); err != nil {
		s.log.ErrorContext(ctx, "failed to sign out user", "error", err)
	}
}

// SignInUser sends a sign-in code to a registered email. Unknown emails
// yield a result carrying MsgUserNotFound instead of an error.
func (s *AuthService) SignInUser(ctx context.Context, email string) (*SignInResult, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to look up user", "email", email, "error", err)
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if existing == nil {
		return &SignInResult{Error: MsgUserNotFound}, nil
	}

	if _, err := s.SendEmailOTP(ctx, email); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	accountID := existing.AccountID
	return &SignInResult{AccountID: &accountID}, nil
}

// Ready checks that the API key can read the users collection and, when
// configured, the file bucket.
func (s *AuthService) Ready(ctx context.Context) error {
	admin := s.clients.CreateAdminClient()
	if err := s.users.Ping(admin.Databases()); err != nil {
		return err
	}
	if s.cfg.BucketID == "" {
		return nil
	}
	st := admin.Storage()
	if _, err := st.ListFiles(s.cfg.BucketID, st.WithListFilesQueries([]string{query.Limit(1)})); err != nil {
		return fmt.Errorf("ping bucket: %w", backend.Error(err))
	}
	return nil
}
