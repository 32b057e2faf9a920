// Package users implements the account and session workflow: registration,
// login, email verification, password reset and profile management.
package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/velmark/soundwave/internal/hash"
	"github.com/velmark/soundwave/internal/logging"
	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/models"
	"github.com/velmark/soundwave/internal/notify"
	"github.com/velmark/soundwave/internal/repository"
	"github.com/velmark/soundwave/internal/tokens"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotVerified         = errors.New("account is not verified")
	ErrNoVerificationToken = errors.New("there is no verification token")
	ErrInvalidVerification = errors.New("invalid verification link")
	ErrNoResetToken        = errors.New("there is no reset password token")
	ErrInvalidResetToken   = errors.New("invalid reset password link")
	ErrForbidden           = errors.New("access denied")
	ErrNoProfileImage      = errors.New("there is no profile image")
)

const (
	MsgPendingVerification = "Verification token has been sent to your email, please verify your email address"
	MsgVerified            = "Your email has been verified, please log in to your account"
	MsgResetSent           = "If the email exists, a password reset link has been sent"
	MsgPasswordReset       = "Your password has been reset, please log in to your account"
	MsgUserDeleted         = "User has been deleted"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

type Service struct {
	Repo      *repository.UserRepo
	Tokens    *tokens.Manager
	Mail      notify.Mailer
	Media     mediastore.Store
	Events    EventPublisher
	PublicURL string
}

func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "users.register")

	if _, err := s.Repo.FindByEmail(ctx, email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return "", err
	}

	token := randomToken(32)
	user := models.User{
		Username:          username,
		Email:             email,
		PasswordHash:      pwHash,
		UserType:          models.RoleUser,
		IsAccountVerified: false,
		VerificationToken: &token,
		Kind:              models.AccountKindJWT,
	}
	if err := s.Repo.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return "", ErrEmailTaken
		}
		return "", err
	}

	link := s.verificationLink(user.ID, token)
	if err := s.Mail.SendVerifyEmail(ctx, user.Email, link); err != nil {
		l.Error("verification mail failed", "user_id", user.ID, "error", err)
	}

	s.publish(ctx, "user_events", user.ID, map[string]interface{}{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return MsgPendingVerification, nil
}

// Login requires a verified account: unverified accounts get ErrNotVerified,
// not ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "users.login")

	user, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "password mismatch", "user_id", user.ID)
		return "", ErrInvalidCredentials
	}
	if !user.IsAccountVerified {
		return "", ErrNotVerified
	}

	token, err := s.Tokens.Issue(user)
	if err != nil {
		return "", err
	}

	s.publish(ctx, "user_events", user.ID, map[string]interface{}{
		"type":   "user_logged_in",
		"userID": user.ID,
	})

	return token, nil
}

func (s *Service) VerifyEmail(ctx context.Context, userID uint, token string) (string, error) {
	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.VerificationToken == nil {
		return "", ErrNoVerificationToken
	}
	if *user.VerificationToken != token {
		return "", ErrInvalidVerification
	}

	user.IsAccountVerified = true
	user.VerificationToken = nil
	if err := s.Repo.Save(ctx, user); err != nil {
		return "", err
	}
	return MsgVerified, nil
}

// SendResetPassword answers identically whether or not the email exists.
func (s *Service) SendResetPassword(ctx context.Context, email string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "users.reset_request")

	user, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MsgResetSent, nil
		}
		return "", err
	}

	token := randomToken(32)
	user.ResetPasswordToken = &token
	if err := s.Repo.Save(ctx, user); err != nil {
		return "", err
	}

	link := s.resetLink(user.ID, token)
	if err := s.Mail.SendResetPassword(ctx, user.Email, link); err != nil {
		l.Error("reset mail failed", "user_id", user.ID, "error", err)
	}

	return MsgResetSent, nil
}

// ValidateResetToken backs the emailed link: it checks the token without
// consuming it.
func (s *Service) ValidateResetToken(ctx context.Context, userID uint, token string) error {
	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ResetPasswordToken == nil {
		return ErrNoResetToken
	}
	if *user.ResetPasswordToken != token {
		return ErrInvalidResetToken
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, userID uint, token, newPassword string) (string, error) {
	if err := s.ValidateResetToken(ctx, userID, token); err != nil {
		return "", err
	}

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return "", err
	}
	user.PasswordHash = pwHash
	user.ResetPasswordToken = nil
	if err := s.Repo.Save(ctx, user); err != nil {
		return "", err
	}
	return MsgPasswordReset, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.Repo.FindByID(ctx, userID)
}

func (s *Service) GetAll(ctx context.Context) ([]models.User, error) {
	return s.Repo.GetAll(ctx)
}

type UpdateParams struct {
	Username *string
	Password *string
	Email    *string
}

// Update applies a partial patch. Changing the email re-arms verification:
// the account drops back to unverified with a fresh single-use token.
func (s *Service) Update(ctx context.Context, userID uint, params UpdateParams) (*models.User, string, error) {
	l := logging.FromContext(ctx).With("svc", "users.update")

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	if params.Password != nil {
		pwHash, err := hash.HashPassword(*params.Password)
		if err != nil {
			return nil, "", err
		}
		user.PasswordHash = pwHash
	}
	if params.Username != nil {
		user.Username = *params.Username
	}
	if params.Email != nil && *params.Email != user.Email {
		if _, err := s.Repo.FindByEmail(ctx, *params.Email); err == nil {
			return nil, "", ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, "", err
		}

		token := randomToken(32)
		user.Email = *params.Email
		user.IsAccountVerified = false
		user.VerificationToken = &token
		if err := s.Repo.Save(ctx, user); err != nil {
			return nil, "", err
		}

		link := s.verificationLink(user.ID, token)
		if err := s.Mail.SendVerifyEmail(ctx, user.Email, link); err != nil {
			l.Error("verification mail failed", "user_id", user.ID, "error", err)
		}
		return nil, MsgPendingVerification, nil
	}

	if err := s.Repo.Save(ctx, user); err != nil {
		return nil, "", err
	}
	return user, "", nil
}

// Delete is allowed for the owner and for admins; songs are removed with the
// account.
func (s *Service) Delete(ctx context.Context, userID uint, caller *tokens.Claims) (string, error) {
	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if caller == nil || (caller.UserID != user.ID && caller.UserType != models.RoleAdmin) {
		return "", ErrForbidden
	}
	if err := s.Repo.Delete(ctx, user); err != nil {
		return "", err
	}

	s.publish(ctx, "user_events", user.ID, map[string]interface{}{
		"type":   "user_deleted",
		"userID": user.ID,
	})

	return MsgUserDeleted, nil
}

func (s *Service) SetProfileImage(ctx context.Context, userID uint, newImageURL string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.profile_image")

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ProfileImage != nil {
		s.deleteMedia(ctx, l, *user.ProfileImage)
	}
	user.ProfileImage = &newImageURL
	if err := s.Repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) RemoveProfileImage(ctx context.Context, userID uint) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.profile_image")

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ProfileImage == nil {
		return nil, ErrNoProfileImage
	}

	s.deleteMedia(ctx, l, *user.ProfileImage)
	user.ProfileImage = nil
	if err := s.Repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// deleteMedia releases an old object from the media store. Cleanup is
// best-effort: a failure is logged and never blocks the rebinding.
func (s *Service) deleteMedia(ctx context.Context, l *slog.Logger, imageURL string) {
	publicID, err := mediastore.PublicIDFromURL(imageURL)
	if err != nil {
		l.Error("media url parse failed", "url", imageURL, "error", err)
		return
	}
	if err := s.Media.Delete(ctx, publicID, mediastore.KindImage); err != nil {
		l.Error("media delete failed", "public_id", publicID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, topic string, key uint, event map[string]interface{}) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "topic", topic, "error", err)
	}
}

func (s *Service) verificationLink(userID uint, token string) string {
	return fmt.Sprintf("%s/api/users/verify-email/%d/%s", s.PublicURL, userID, token)
}

func (s *Service) resetLink(userID uint, token string) string {
	return fmt.Sprintf("%s/api/users/reset-password/%d/%s", s.PublicURL, userID, token)
}

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
