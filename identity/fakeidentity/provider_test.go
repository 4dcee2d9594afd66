package fakeidentity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/identity/fakeidentity"
	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

const (
	secretStr        = "super-secret-jwt-token-with-at-least-32-characters"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

func TestProvider_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	p := fakeidentity.New(secretStr)
	codec := token.NewCodec(secretStr)

	signedUp, err := p.SignUp(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, token.Valid, codec.Classify(signedUp.Session.AccessToken))

	_, err = p.SignUp(ctx, testUserEmail, testUserPassword)
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = p.SignIn(ctx, testUserEmail, "wrong")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)

	signedIn, err := p.SignIn(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotNil(t, signedIn.User.LastSignIn)

	user, err := p.GetUser(ctx, signedIn.Session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, signedUp.User.ID, user.ID)

	refreshed, err := p.RefreshSession(ctx, signedIn.Session.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, signedIn.Session.RefreshToken, refreshed.Session.RefreshToken)

	_, err = p.RefreshSession(ctx, signedIn.Session.RefreshToken)
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)

	require.NoError(t, p.SignOut(ctx, refreshed.Session.AccessToken))
	_, err = p.GetUser(ctx, refreshed.Session.AccessToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
	_, err = p.RefreshSession(ctx, refreshed.Session.RefreshToken)
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
}

func TestProvider_EmailConfirmation(t *testing.T) {
	ctx := context.Background()
	p := fakeidentity.New(secretStr, fakeidentity.WithEmailConfirmation())

	res, err := p.SignUp(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Nil(t, res.Session)
	require.False(t, res.User.EmailConfirmed)

	_, err = p.SignIn(ctx, testUserEmail, testUserPassword)
	require.ErrorIs(t, err, errors.ErrEmailNotConfirmed)

	require.NoError(t, p.ConfirmEmail(testUserEmail))
	_, err = p.SignIn(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
}

func TestProvider_ExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	p := fakeidentity.New(secretStr)
	res, err := p.SignUp(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	expired, err := p.AccessToken(res.User.ID, res.User.Email, time.Now().Add(-time.Second))
	require.NoError(t, err)
	require.Equal(t, token.Expired, token.NewCodec(secretStr).Classify(expired))

	_, err = p.GetUser(ctx, expired)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestProvider_UpdateUser(t *testing.T) {
	ctx := context.Background()
	p := fakeidentity.New(secretStr)
	res, err := p.SignUp(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	email := "Jane@Example.com"
	user, err := p.UpdateUser(ctx, res.Session.AccessToken, identity.UserUpdate{Email: &email})
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", user.Email)

	_, err = p.SignIn(ctx, "jane@example.com", testUserPassword)
	require.NoError(t, err)
}
