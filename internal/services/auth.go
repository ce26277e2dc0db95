// ===============================
// internal/services/auth.go - Registration, sign-in sync and session management
// ===============================

package services

import (
	"context"
	"strings"
	"time"

	"freezybe/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type AuthService struct {
	identity IdentityProvider
	users    *UserService
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(identity IdentityProvider, users *UserService, logger *zap.Logger) *AuthService {
	return &AuthService{identity: identity, users: users, logger: logger, now: time.Now}
}

// Registration is returned to the client after sign-up.
type Registration struct {
	User             *models.User `json:"user"`
	VerificationLink string       `json:"verificationLink,omitempty"`
	Message          string       `json:"message"`
}

// Register creates the identity and the users row. Every new account starts
// pending until an admin approves it, whatever plan was chosen.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*Registration, error) {
	if !models.ValidPhoneNumber(req.PhoneNumber) {
		return nil, ErrInvalidPhone
	}

	plan := req.Plan
	if plan == "" {
		plan = models.PlanFree
	}
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}

	name := strings.TrimSpace(req.Name)
	record, err := s.identity.CreateUser(ctx, req.Email, req.Password, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create identity")
	}

	user := NewDefaultUser(IdentityRecord{
		UID:         record.UID,
		Email:       req.Email,
		DisplayName: name,
		PhoneNumber: req.PhoneNumber,
	}, s.now())
	status := models.ApprovalPending
	user.SelectedPlan = &plan
	user.ApprovalStatus = &status
	user.ApprovedBy = nil
	user.ApprovedAt = nil

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Drop the identity so the address can register again.
		if delErr := s.identity.DeleteUser(ctx, record.UID); delErr != nil {
			s.logger.Error("failed to remove orphaned identity",
				zap.String("uid", record.UID), zap.Error(delErr))
		}
		return nil, err
	}

	reg := &Registration{
		User:    user,
		Message: "Registration successful. Your account is pending admin approval.",
	}

	link, err := s.identity.EmailVerificationLink(ctx, req.Email)
	if err != nil {
		s.logger.Warn("failed to generate verification link", zap.String("uid", user.UID), zap.Error(err))
	} else {
		reg.VerificationLink = link
		s.logger.Info("verification link generated",
			zap.String("uid", user.UID), zap.String("email", req.Email), zap.String("link", link))
	}

	return reg, nil
}

// Sync is called after every sign-in, whether by password or Google. It
// makes sure the users row exists and is complete.
func (s *AuthService) Sync(ctx context.Context, uid string) (*models.User, models.BackfillResult, error) {
	record, err := s.identity.GetUser(ctx, uid)
	if err != nil {
		return nil, models.BackfillResult{}, errors.Wrap(err, "failed to load identity")
	}

	rec := IdentityRecord{UID: uid}
	if record.UserInfo != nil {
		rec.Email = record.Email
		rec.DisplayName = record.DisplayName
		rec.PhoneNumber = record.PhoneNumber
	}
	rec.EmailVerified = record.EmailVerified

	return s.users.EnsureUserDocument(ctx, rec)
}

// ResetPassword generates a reset link and logs it for delivery by the
// support team. The link is never returned and unknown addresses are not
// reported to the caller.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	link, err := s.identity.PasswordResetLink(ctx, email)
	if err != nil {
		s.logger.Warn("password reset link failed", zap.String("email", email), zap.Error(err))
		return nil
	}
	s.logger.Info("password reset link generated", zap.String("email", email), zap.String("link", link))
	return nil
}

// Logout revokes the user's refresh tokens.
func (s *AuthService) Logout(ctx context.Context, uid string) error {
	if err := s.identity.RevokeRefreshTokens(ctx, uid); err != nil {
		return errors.Wrap(err, "failed to revoke tokens")
	}
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, uid string) (*models.User, error) {
	return s.users.GetUser(ctx, uid)
}
