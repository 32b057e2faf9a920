package users

import (
	"context"
	"errors"
	"strings"

	"github.com/velmark/soundwave/internal/hash"
	"github.com/velmark/soundwave/internal/logging"
	"github.com/velmark/soundwave/internal/models"
	"github.com/velmark/soundwave/internal/oauth"
	"github.com/velmark/soundwave/internal/repository"
)

// HandleGoogleLogin logs an account in by its provider email, synthesizing a
// pre-verified account on first contact. The generated password is random and
// never disclosed; the user is mailed a set-password link instead.
func (s *Service) HandleGoogleLogin(ctx context.Context, profile *oauth.Profile) (*models.User, string, error) {
	l := logging.FromContext(ctx).With("svc", "users.google_login")

	user, err := s.Repo.FindByEmail(ctx, profile.Email)
	if err == nil {
		token, err := s.Tokens.Issue(user)
		if err != nil {
			return nil, "", err
		}
		return user, token, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	pwHash, err := hash.HashPassword(randomToken(32))
	if err != nil {
		return nil, "", err
	}

	var profileImage *string
	if profile.Picture != "" {
		picture := profile.Picture
		profileImage = &picture
	}

	resetToken := randomToken(32)
	newUser := models.User{
		Username:           generateUsername(profile.GivenName, profile.FamilyName),
		Email:              profile.Email,
		PasswordHash:       pwHash,
		UserType:           models.RoleUser,
		IsAccountVerified:  true,
		ResetPasswordToken: &resetToken,
		ProfileImage:       profileImage,
		Kind:               models.AccountKindGoogle,
	}
	if err := s.Repo.Create(ctx, &newUser); err != nil {
		return nil, "", err
	}

	link := s.resetLink(newUser.ID, resetToken)
	if err := s.Mail.SendSetPassword(ctx, newUser.Email, link); err != nil {
		l.Error("set-password mail failed", "user_id", newUser.ID, "error", err)
	}

	s.publish(ctx, "user_events", newUser.ID, map[string]interface{}{
		"type":   "user_registered",
		"userID": newUser.ID,
		"email":  newUser.Email,
		"kind":   newUser.Kind,
	})

	token, err := s.Tokens.Issue(&newUser)
	if err != nil {
		return nil, "", err
	}
	return &newUser, token, nil
}

// generateUsername joins the provider names, lowercased and stripped of
// whitespace, with a short random suffix to avoid collisions.
func generateUsername(givenName, familyName string) string {
	base := strings.ToLower(givenName + familyName)
	base = strings.Join(strings.Fields(base), "")
	if base == "" {
		base = "user"
	}
	return base + "-" + randomToken(3)
}
