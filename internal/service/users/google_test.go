package users

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmark/soundwave/internal/models"
	"github.com/velmark/soundwave/internal/oauth"
)

func TestHandleGoogleLogin_SynthesizesAccount(t *testing.T) {
	t.Parallel()

	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	profile := &oauth.Profile{
		Email:      "jane@gmail.com",
		GivenName:  "Jane",
		FamilyName: "Doe",
		Picture:    "https://lh3.googleusercontent.com/photo.jpg",
	}

	user, token, err := svc.HandleGoogleLogin(ctx, profile)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Regexp(t, regexp.MustCompile(`^janedoe-[0-9a-f]{6}$`), user.Username)
	assert.True(t, user.IsAccountVerified)
	assert.Equal(t, models.AccountKindGoogle, user.Kind)
	assert.Equal(t, models.RoleUser, user.UserType)
	require.NotNil(t, user.ProfileImage)
	assert.Equal(t, profile.Picture, *user.ProfileImage)
	assert.NotEmpty(t, user.PasswordHash)

	claims, err := svc.Tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	require.Len(t, mailer.SetPassword, 1)
	assert.Equal(t, "jane@gmail.com", mailer.SetPassword[0].To)
}

func TestHandleGoogleLogin_SecondLoginReturnsSameAccount(t *testing.T) {
	t.Parallel()

	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	profile := &oauth.Profile{Email: "jane@gmail.com", GivenName: "Jane"}

	first, _, err := svc.HandleGoogleLogin(ctx, profile)
	require.NoError(t, err)

	second, token, err := svc.HandleGoogleLogin(ctx, profile)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, first.ID, second.ID)

	all, err := svc.Repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	// only the first contact mails a set-password link
	assert.Len(t, mailer.SetPassword, 1)
}

func TestHandleGoogleLogin_LinksExistingNativeAccount(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "jane@gmail.com")

	got, token, err := svc.HandleGoogleLogin(ctx, &oauth.Profile{Email: "jane@gmail.com", GivenName: "Jane"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, models.AccountKindJWT, got.Kind)
}

func TestGenerateUsername(t *testing.T) {
	t.Parallel()

	assert.Regexp(t, `^janedoe-[0-9a-f]{6}$`, generateUsername("Jane", "Doe"))
	assert.Regexp(t, `^janevandoe-[0-9a-f]{6}$`, generateUsername("Jane", "van Doe"))
	assert.Regexp(t, `^user-[0-9a-f]{6}$`, generateUsername("", ""))
}
