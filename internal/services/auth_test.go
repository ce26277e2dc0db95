package services

import (
	"context"
	"encoding/json"
	"testing"

	"freezybe/internal/models"

	"firebase.google.com/go/v4/auth"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeIdentity struct {
	created   []string
	deleted   []string
	resetErr  error
	revoked   []string
	records   map[string]*auth.UserRecord
	verifyErr error
}

func (f *fakeIdentity) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &auth.Token{UID: idToken}, nil
}

func (f *fakeIdentity) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	if rec, ok := f.records[uid]; ok {
		return rec, nil
	}
	return nil, errors.New("user not found")
}

func (f *fakeIdentity) CreateUser(_ context.Context, email, _, displayName string) (*auth.UserRecord, error) {
	f.created = append(f.created, email)
	return &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "new-" + email, Email: email, DisplayName: displayName}}, nil
}

func (f *fakeIdentity) PasswordResetLink(_ context.Context, email string) (string, error) {
	if f.resetErr != nil {
		return "", f.resetErr
	}
	return "https://example.com/reset?email=" + email, nil
}

func (f *fakeIdentity) EmailVerificationLink(_ context.Context, email string) (string, error) {
	return "https://example.com/verify?email=" + email, nil
}

func (f *fakeIdentity) RevokeRefreshTokens(_ context.Context, uid string) error {
	f.revoked = append(f.revoked, uid)
	return nil
}

func (f *fakeIdentity) DeleteUser(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}

func TestAuthService_RegisterRejectsBadPhone(t *testing.T) {
	db, _ := newMockDB(t)
	identity := &fakeIdentity{}
	s := NewAuthService(identity, NewUserService(db, nopLogger()), nopLogger())

	_, err := s.Register(bg, models.RegisterRequest{
		Email:       "a@example.com",
		Password:    "secret1",
		Name:        "Ali",
		PhoneNumber: "03001234567",
	})
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Empty(t, identity.created)
}

func TestAuthService_RegisterRejectsUnknownPlan(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewAuthService(&fakeIdentity{}, NewUserService(db, nopLogger()), nopLogger())

	_, err := s.Register(bg, models.RegisterRequest{
		Email:       "a@example.com",
		Password:    "secret1",
		Name:        "Ali",
		PhoneNumber: "+923001234567",
		Plan:        "gold",
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestAuthService_RegisterStartsPending(t *testing.T) {
	db, mock := newMockDB(t)
	identity := &fakeIdentity{}
	s := NewAuthService(identity, NewUserService(db, nopLogger()), nopLogger())

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))

	reg, err := s.Register(bg, models.RegisterRequest{
		Email:       "sara@example.com",
		Password:    "secret1",
		Name:        "  Sara  ",
		PhoneNumber: "+923001234567",
		Plan:        models.PlanPro,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sara@example.com"}, identity.created)
	assert.Equal(t, "Sara", reg.User.Name)
	assert.Equal(t, models.PlanPro, reg.User.Plan())
	assert.Equal(t, models.ApprovalPending, reg.User.Approval())
	assert.Nil(t, reg.User.ApprovedBy)
	assert.Equal(t, "https://example.com/verify?email=sara@example.com", reg.VerificationLink)
	assert.Contains(t, reg.Message, "pending admin approval")
	assert.Empty(t, identity.deleted)

	body, err := json.Marshal(reg)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"verificationLink":"https://example.com/verify?email=sara@example.com"`)
}

func TestAuthService_RegisterRemovesIdentityWhenRowFails(t *testing.T) {
	db, mock := newMockDB(t)
	identity := &fakeIdentity{}
	s := NewAuthService(identity, NewUserService(db, nopLogger()), nopLogger())

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("connection reset"))

	_, err := s.Register(bg, models.RegisterRequest{
		Email:       "sara@example.com",
		Password:    "secret1",
		Name:        "Sara",
		PhoneNumber: "+923001234567",
	})
	require.Error(t, err)
	assert.Equal(t, []string{"new-sara@example.com"}, identity.deleted)
}

func TestAuthService_ResetPasswordLogsLink(t *testing.T) {
	db, _ := newMockDB(t)
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewAuthService(&fakeIdentity{}, NewUserService(db, nopLogger()), zap.New(core))

	require.NoError(t, s.ResetPassword(bg, "ali@example.com"))

	entries := logs.FilterMessage("password reset link generated").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ali@example.com", fields["email"])
	assert.Equal(t, "https://example.com/reset?email=ali@example.com", fields["link"])
}

func TestAuthService_ResetPasswordNeverReportsUnknownEmail(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewAuthService(&fakeIdentity{resetErr: errors.New("EMAIL_NOT_FOUND")}, NewUserService(db, nopLogger()), nopLogger())

	assert.NoError(t, s.ResetPassword(bg, "ghost@example.com"))
}

func TestAuthService_Logout(t *testing.T) {
	db, _ := newMockDB(t)
	identity := &fakeIdentity{}
	s := NewAuthService(identity, NewUserService(db, nopLogger()), nopLogger())

	require.NoError(t, s.Logout(bg, "u1"))
	assert.Equal(t, []string{"u1"}, identity.revoked)
}

func TestAuthService_SyncBackfillsExistingUser(t *testing.T) {
	db, mock := newMockDB(t)
	identity := &fakeIdentity{records: map[string]*auth.UserRecord{
		"u1": {UserInfo: &auth.UserInfo{UID: "u1", Email: "ali@example.com"}, EmailVerified: true},
	}}
	s := NewAuthService(identity, NewUserService(db, nopLogger()), nopLogger())

	mock.ExpectQuery("SELECT (.+) FROM users WHERE uid").WithArgs("u1").
		WillReturnRows(userRows(models.User{UID: "u1", Name: "Ali", Email: "ali@example.com", UserType: models.UserTypeUser}))
	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 1))

	user, result, err := s.Sync(bg, "u1")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Contains(t, result.Fields, "selected_plan")
	assert.Contains(t, result.Fields, "preferences")
	assert.Equal(t, models.PlanFree, user.Plan())
	assert.True(t, user.IsApproved())
}
