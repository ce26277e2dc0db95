// ===============================
// internal/services/firebase.go - Centralized Firebase Service
// ===============================

package services

import (
	"context"

	"freezybe/internal/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// IdentityProvider is the subset of Firebase Auth the services rely on.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	CreateUser(ctx context.Context, email, password, displayName string) (*auth.UserRecord, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
	EmailVerificationLink(ctx context.Context, email string) (string, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	DeleteUser(ctx context.Context, uid string) error
}

type FirebaseService struct {
	app        *firebase.App
	authClient *auth.Client
}

// NewFirebaseService creates and initializes a new Firebase service
func NewFirebaseService(ctx context.Context, cfg *config.Config) (*FirebaseService, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: cfg.FirebaseProjectID,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firebase app")
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firebase auth client")
	}

	return &FirebaseService{
		app:        firebaseApp,
		authClient: authClient,
	}, nil
}

// Firestore opens a client for the legacy document store. The caller closes it.
func (fs *FirebaseService) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := fs.app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firestore client")
	}
	return client, nil
}

// VerifyIDToken verifies a Firebase ID token and returns the token claims
func (fs *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return fs.authClient.VerifyIDToken(ctx, idToken)
}

// GetUser gets a Firebase user by UID
func (fs *FirebaseService) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	return fs.authClient.GetUser(ctx, uid)
}

func (fs *FirebaseService) CreateUser(ctx context.Context, email, password, displayName string) (*auth.UserRecord, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName).
		EmailVerified(false)
	return fs.authClient.CreateUser(ctx, params)
}

func (fs *FirebaseService) PasswordResetLink(ctx context.Context, email string) (string, error) {
	return fs.authClient.PasswordResetLink(ctx, email)
}

func (fs *FirebaseService) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	return fs.authClient.EmailVerificationLink(ctx, email)
}

// RevokeRefreshTokens signs the user out of every session.
func (fs *FirebaseService) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return fs.authClient.RevokeRefreshTokens(ctx, uid)
}

func (fs *FirebaseService) DeleteUser(ctx context.Context, uid string) error {
	return fs.authClient.DeleteUser(ctx, uid)
}
