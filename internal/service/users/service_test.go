package users

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velmark/soundwave/internal/hash"
	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/models"
	"github.com/velmark/soundwave/internal/repository"
	"github.com/velmark/soundwave/internal/tokens"
)

type mailCall struct {
	To   string
	Link string
}

type fakeMailer struct {
	Verify      []mailCall
	Reset       []mailCall
	SetPassword []mailCall
}

func (f *fakeMailer) SendVerifyEmail(_ context.Context, to, link string) error {
	f.Verify = append(f.Verify, mailCall{To: to, Link: link})
	return nil
}

func (f *fakeMailer) SendResetPassword(_ context.Context, to, link string) error {
	f.Reset = append(f.Reset, mailCall{To: to, Link: link})
	return nil
}

func (f *fakeMailer) SendSetPassword(_ context.Context, to, link string) error {
	f.SetPassword = append(f.SetPassword, mailCall{To: to, Link: link})
	return nil
}

type fakeMedia struct {
	Deletes   []string
	DeleteErr error
}

func (f *fakeMedia) Upload(_ context.Context, _ io.Reader, filename string, _ mediastore.Kind) (*mediastore.UploadResult, error) {
	return &mediastore.UploadResult{
		PublicID:  "images/" + filename,
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/images/" + filename,
	}, nil
}

func (f *fakeMedia) Delete(_ context.Context, publicID string, _ mediastore.Kind) error {
	f.Deletes = append(f.Deletes, publicID)
	return f.DeleteErr
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Song{}))
	return db
}

func newTestService(t *testing.T) (*Service, *fakeMailer, *fakeMedia) {
	t.Helper()

	mailer := &fakeMailer{}
	media := &fakeMedia{}
	svc := &Service{
		Repo:      &repository.UserRepo{DB: initTestDB(t)},
		Tokens:    tokens.NewManager([]byte("test-secret"), time.Hour),
		Mail:      mailer,
		Media:     media,
		PublicURL: "http://localhost:8080",
	}
	return svc, mailer, media
}

func registerVerified(t *testing.T, svc *Service, email string) *models.User {
	t.Helper()

	ctx := context.Background()
	_, err := svc.Register(ctx, "tester", email, "password")
	require.NoError(t, err)

	user, err := svc.Repo.FindByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, user.VerificationToken)

	_, err = svc.VerifyEmail(ctx, user.ID, *user.VerificationToken)
	require.NoError(t, err)

	user, err = svc.Repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	return user
}

func TestRegister_CreatesUnverifiedAccountWithToken(t *testing.T) {
	t.Parallel()

	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Register(ctx, "tester", "a@b.com", "password")
	require.NoError(t, err)
	assert.Equal(t, MsgPendingVerification, msg)

	user, err := svc.Repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, user.IsAccountVerified)
	require.NotNil(t, user.VerificationToken)
	assert.Len(t, *user.VerificationToken, 64)
	assert.Equal(t, models.RoleUser, user.UserType)
	assert.NotEqual(t, "password", user.PasswordHash)
	assert.True(t, hash.CheckPassword(user.PasswordHash, "password"))

	require.Len(t, mailer.Verify, 1)
	assert.Equal(t, "a@b.com", mailer.Verify[0].To)
	assert.Contains(t, mailer.Verify[0].Link, fmt.Sprintf("/verify-email/%d/%s", user.ID, *user.VerificationToken))
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "first", "a@b.com", "password")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "second", "a@b.com", "other-password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyEmail_ConsumesTokenExactlyOnce(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tester", "a@b.com", "password")
	require.NoError(t, err)
	user, err := svc.Repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	token := *user.VerificationToken

	msg, err := svc.VerifyEmail(ctx, user.ID, token)
	require.NoError(t, err)
	assert.Equal(t, MsgVerified, msg)

	user, err = svc.Repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, user.IsAccountVerified)
	assert.Nil(t, user.VerificationToken)

	// the same token must not verify a second time
	_, err = svc.VerifyEmail(ctx, user.ID, token)
	assert.ErrorIs(t, err, ErrNoVerificationToken)
}

func TestVerifyEmail_WrongToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tester", "a@b.com", "password")
	require.NoError(t, err)
	user, err := svc.Repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, user.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidVerification)

	user, err = svc.Repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, user.IsAccountVerified)
	assert.NotNil(t, user.VerificationToken)
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	_, err := svc.VerifyEmail(context.Background(), 999, "whatever")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "a@b.com")

	token, err := svc.Login(ctx, "a@b.com", "password")
	require.NoError(t, err)

	claims, err := svc.Tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.UserType, claims.UserType)

	_, err = svc.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@b.com", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnverifiedAccountIsForbidden(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tester", "a@b.com", "password")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@b.com", "password")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestSendResetPassword_DoesNotLeakAccountExistence(t *testing.T) {
	t.Parallel()

	svc, mailer, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, "a@b.com")

	existing, err := svc.SendResetPassword(ctx, "a@b.com")
	require.NoError(t, err)
	missing, err := svc.SendResetPassword(ctx, "nobody@b.com")
	require.NoError(t, err)

	assert.Equal(t, existing, missing)

	// mail goes out only for the account that exists
	require.Len(t, mailer.Reset, 1)
	assert.Equal(t, "a@b.com", mailer.Reset[0].To)
}

func TestResetPassword_SingleUseToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "a@b.com")

	_, err := svc.SendResetPassword(ctx, "a@b.com")
	require.NoError(t, err)

	user, err = svc.Repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, user.ResetPasswordToken)
	token := *user.ResetPasswordToken

	_, err = svc.ResetPassword(ctx, user.ID, "bogus", "newpassword")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	msg, err := svc.ResetPassword(ctx, user.ID, token, "newpassword")
	require.NoError(t, err)
	assert.Equal(t, MsgPasswordReset, msg)

	_, err = svc.Login(ctx, "a@b.com", "newpassword")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "a@b.com", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// consumed token cannot be replayed
	_, err = svc.ResetPassword(ctx, user.ID, token, "thirdpassword")
	assert.ErrorIs(t, err, ErrNoResetToken)
}

func TestUpdate_EmailChangeReArmsVerification(t *testing.T) {
	t.Parallel()

	svc, mailer, _ := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "a@b.com")
	mailer.Verify = nil

	newEmail := "new@b.com"
	_, msg, err := svc.Update(ctx, user.ID, UpdateParams{Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, MsgPendingVerification, msg)

	user, err = svc.Repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, newEmail, user.Email)
	assert.False(t, user.IsAccountVerified)
	require.NotNil(t, user.VerificationToken)

	require.Len(t, mailer.Verify, 1)
	assert.Equal(t, newEmail, mailer.Verify[0].To)

	// unverified again, so login is gated
	_, err = svc.Login(ctx, newEmail, "password")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestUpdate_PartialPatch(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "a@b.com")

	username := "renamed"
	updated, msg, err := svc.Update(ctx, user.ID, UpdateParams{Username: &username})
	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Equal(t, "renamed", updated.Username)
	assert.Equal(t, "a@b.com", updated.Email)
	assert.True(t, updated.IsAccountVerified)
}

func TestDelete_OwnerOrAdminOnly(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := registerVerified(t, svc, "owner@b.com")
	other := registerVerified(t, svc, "other@b.com")

	_, err := svc.Delete(ctx, owner.ID, &tokens.Claims{UserID: other.ID, UserType: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)

	msg, err := svc.Delete(ctx, owner.ID, &tokens.Claims{UserID: owner.ID, UserType: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, MsgUserDeleted, msg)

	_, err = svc.Repo.FindByID(ctx, owner.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// admins may delete any account
	msg, err = svc.Delete(ctx, other.ID, &tokens.Claims{UserID: 999, UserType: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, MsgUserDeleted, msg)
}

func TestDelete_CascadesSongs(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := registerVerified(t, svc, "owner@b.com")

	db := svc.Repo.DB
	require.NoError(t, db.Create(&models.Song{
		Name: "test song", Artist: "tester", UserID: owner.ID,
		AudioURL: "https://res.cloudinary.com/demo/video/upload/v1/songs/a.mp3",
		ImageURL: "https://res.cloudinary.com/demo/image/upload/v1/images/a.png",
	}).Error)

	_, err := svc.Delete(ctx, owner.ID, &tokens.Claims{UserID: owner.ID, UserType: models.RoleUser})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Song{}).Where("user_id = ?", owner.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSetProfileImage(t *testing.T) {
	t.Parallel()

	svc, _, media := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "a@b.com")

	first := "https://res.cloudinary.com/demo/image/upload/v1/images/first.png"
	updated, err := svc.SetProfileImage(ctx, user.ID, first)
	require.NoError(t, err)
	require.NotNil(t, updated.ProfileImage)
	assert.Equal(t, first, *updated.ProfileImage)
	// no prior image, so nothing is released
	assert.Empty(t, media.Deletes)

	second := "https://res.cloudinary.com/demo/image/upload/v1/images/second.png"
	updated, err = svc.SetProfileImage(ctx, user.ID, second)
	require.NoError(t, err)
	assert.Equal(t, second, *updated.ProfileImage)
	assert.Equal(t, []string{"images/first"}, media.Deletes)
}

func TestRemoveProfileImage(t *testing.T) {
	t.Parallel()

	svc, _, media := newTestService(t)
	ctx := context.Background()
	user := registerVerified(t, svc, "a@b.com")

	_, err := svc.RemoveProfileImage(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNoProfileImage)

	_, err = svc.SetProfileImage(ctx, user.ID, "https://res.cloudinary.com/demo/image/upload/v1/images/avatar.png")
	require.NoError(t, err)

	updated, err := svc.RemoveProfileImage(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.ProfileImage)
	assert.Equal(t, []string{"images/avatar"}, media.Deletes)
}
