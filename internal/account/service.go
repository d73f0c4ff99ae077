package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/auth"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("name, valid email and password are required")
)

// maxFieldLength matches the users table's VARCHAR(255) columns.
const maxFieldLength = 255

// bcrypt refuses longer passwords.
const maxPasswordBytes = 72

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is the result of a successful login.
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Service registers users and opens and closes their sessions.
type Service struct {
	users    interfaces.UserStore
	issuer   *auth.Issuer
	sessions auth.SessionStore
}

func New(users interfaces.UserStore, issuer *auth.Issuer, sessions auth.SessionStore) *Service {
	return &Service{users: users, issuer: issuer, sessions: sessions}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || in.Password == "" {
		return models.User{}, ErrInvalidInput
	}
	if utf8.RuneCountInString(name) > maxFieldLength || utf8.RuneCountInString(email) > maxFieldLength ||
		len(in.Password) > maxPasswordBytes {
		return models.User{}, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, ErrInvalidInput
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, interfaces.ErrDuplicate) {
		return models.User{}, ErrEmailInUse
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Authenticate checks credentials and opens a session. Unknown email and wrong
// password fail identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, interfaces.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	token, claims, err := s.issuer.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Save(ctx, claims.SessionID(), user.ID, s.issuer.TTL()); err != nil {
		return Session{}, err
	}

	return Session{User: user, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}
