package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/okosplazma-sms/app/dto"
	"github.com/amirphl/okosplazma-sms/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthFlow(t *testing.T) (AuthFlow, services.TokenService) {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, "test-issuer", "test-audience", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)
	flow, err := NewAuthFlow(map[string]string{
		"anna": "plazma-pass",
		"bela": "second-pass",
	}, bcrypt.MinCost, tokens, time.Hour, testLogger())
	require.NoError(t, err)
	return flow, tokens
}

func TestAuthFlow_Login(t *testing.T) {
	flow, tokens := newTestAuthFlow(t)
	metadata := NewClientMetadata("127.0.0.1", "test-agent")

	resp, err := flow.Login(context.Background(), &dto.LoginRequest{Username: "anna", Password: "plazma-pass"}, metadata)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "anna", resp.Operator)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "anna", metadata.Operator)

	claims, err := tokens.ValidateOperatorToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "anna", claims.Username)
}

func TestAuthFlow_LoginRejected(t *testing.T) {
	flow, _ := newTestAuthFlow(t)

	tests := []struct {
		name string
		req  *dto.LoginRequest
	}{
		{name: "wrong password", req: &dto.LoginRequest{Username: "anna", Password: "second-pass"}},
		{name: "unknown operator", req: &dto.LoginRequest{Username: "cecil", Password: "plazma-pass"}},
		{name: "empty password", req: &dto.LoginRequest{Username: "anna"}},
		{name: "nil request", req: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := flow.Login(context.Background(), tt.req, nil)
			assert.Nil(t, resp)
			assert.True(t, IsIncorrectCredentials(err))
		})
	}
}

func TestAuthFlow_Logout(t *testing.T) {
	flow, tokens := newTestAuthFlow(t)

	resp, err := flow.Login(context.Background(), &dto.LoginRequest{Username: "bela", Password: "second-pass"}, nil)
	require.NoError(t, err)

	out, err := flow.Logout(context.Background(), resp.AccessToken, nil)
	require.NoError(t, err)
	assert.Equal(t, "bela", out.Operator)

	_, err = tokens.ValidateOperatorToken(resp.AccessToken)
	assert.ErrorIs(t, err, services.ErrTokenRevoked)

	_, err = flow.Logout(context.Background(), resp.AccessToken, nil)
	assert.Error(t, err)
}

func TestNewAuthFlow_NoOperators(t *testing.T) {
	_, err := NewAuthFlow(nil, bcrypt.MinCost, nil, time.Hour, nil)
	assert.ErrorIs(t, err, ErrNoOperators)
}

func TestAuthFlow_Operators(t *testing.T) {
	flow, _ := newTestAuthFlow(t)
	assert.Equal(t, []string{"anna", "bela"}, flow.Operators())
}
