package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    uint
	Username  string
	FullName  string
	Role      models.UserRole
	SessionID uint
}

func PrincipalFor(u *models.User, sessionID uint) *Principal {
	return &Principal{UserID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role, SessionID: sessionID}
}

func (p *Principal) Can(perm models.Permission) bool {
	return p != nil && models.Can(p.Role, perm)
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	SessionID uint         `json:"session_id"`
}

type Service struct {
	store  *repository.Store
	tokens *TokenIssuer
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewService(store *repository.Store, tokens *TokenIssuer, log logrus.FieldLogger) *Service {
	return &Service{store: store, tokens: tokens, log: log, now: time.Now}
}

// Login checks credentials, opens a session and issues a token bound to it.
// Unknown, inactive and wrong-password users all get the same error.
func (s *Service) Login(ctx context.Context, username, password, ip, userAgent string) (*LoginResult, error) {
	invalid := apperror.Authentication("Invalid credentials")

	user, err := s.store.Users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperror.Wrap(err, "Login failed")
	}
	if !user.IsActive {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	now := s.now()
	if err := s.store.Users.Update(ctx, user.ID, map[string]any{"last_login": now}); err != nil {
		return nil, apperror.Wrap(err, "Login failed")
	}
	user.LastLogin = &now

	session := &models.UserSession{
		UserID:    user.ID,
		LoginTime: now,
		IPAddress: optional(ip),
		UserAgent: optional(truncate(userAgent, 255)),
		IsActive:  true,
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, apperror.Wrap(err, "Login failed")
	}

	token, expires, err := s.tokens.Generate(user, session.ID)
	if err != nil {
		return nil, apperror.Wrap(err, "Token could not be created")
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "session_id": session.ID}).Info("user logged in")
	return &LoginResult{Token: token, ExpiresAt: expires, User: user, SessionID: session.ID}, nil
}

// Logout ends the token's session, or every open session when the token
// carries none.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	now := s.now()
	if p.SessionID != 0 {
		_, err := s.store.Sessions.End(ctx, p.SessionID, now)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperror.Wrap(err, "Logout failed")
		}
	} else if _, err := s.store.Sessions.EndAllForUser(ctx, p.UserID, now); err != nil {
		return apperror.Wrap(err, "Logout failed")
	}
	s.log.WithField("user_id", p.UserID).Info("user logged out")
	return nil
}

func (s *Service) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.Authentication("User not found")
	}
	return user, nil
}

// Authenticate verifies the token and that its user still exists and is active.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperror.Authentication("Invalid or expired token")
	}
	user, err := s.store.Users.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, apperror.Authentication("Invalid user")
	}
	return PrincipalFor(user, claims.SessionID), nil
}

// HashPassword is shared by user management and seeding.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
