package businessflow

import (
	"context"
	"crypto/subtle"
	"log"
	"sort"
	"time"

	"github.com/amirphl/okosplazma-sms/app/dto"
	"github.com/amirphl/okosplazma-sms/app/services"
	"github.com/amirphl/okosplazma-sms/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow authenticates operators against the configured credential store
type AuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, token string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
	Operators() []string
}

// AuthFlowImpl keeps only bcrypt hashes of the operator passwords
type AuthFlowImpl struct {
	hashes       map[string][]byte
	tokenService services.TokenService
	tokenTTL     time.Duration
	logger       *log.Logger
	// dummyHash keeps the cost of unknown-username logins equal to wrong-password ones
	dummyHash []byte
}

// NewAuthFlow hashes every credential once; clear-text passwords are not retained
func NewAuthFlow(credentials map[string]string, cost int, tokenService services.TokenService, tokenTTL time.Duration, logger *log.Logger) (AuthFlow, error) {
	if len(credentials) == 0 {
		return nil, NewBusinessError("NO_OPERATORS", "No operator credentials configured", ErrNoOperators)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashes := make(map[string][]byte, len(credentials))
	for username, password := range credentials {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return nil, NewBusinessErrorf("PASSWORD_HASH_FAILED", "Failed to hash password for operator %s", err, username)
		}
		hashes[username] = hash
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-an-operator-password"), cost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to prepare credential store", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	return &AuthFlowImpl{
		hashes:       hashes,
		tokenService: tokenService,
		tokenTTL:     tokenTTL,
		logger:       logger,
		dummyHash:    dummy,
	}, nil
}

func (af *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if req == nil || len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", ErrIncorrectCredentials)
	}

	hash, known := af.lookup(req.Username)
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil || !known {
		af.logger.Printf("auth: failed login for %q from %s", req.Username, metadata.String())
		return nil, NewBusinessError("INCORRECT_CREDENTIALS", "Incorrect username or password", ErrIncorrectCredentials)
	}

	token, expiresAt, err := af.tokenService.GenerateOperatorToken(req.Username)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate token", err)
	}

	if metadata != nil {
		metadata.SetOperator(req.Username)
	}
	af.logger.Printf("auth: operator logged in %s", metadata.String())

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(af.tokenTTL.Seconds()),
		ExpiresAt:   expiresAt,
		Operator:    req.Username,
	}, nil
}

func (af *AuthFlowImpl) Logout(ctx context.Context, token string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	claims, err := af.tokenService.ValidateOperatorToken(token)
	if err != nil {
		return nil, NewBusinessError("TOKEN_INVALID", "Invalid or expired token", err)
	}
	if err := af.tokenService.RevokeToken(token); err != nil {
		return nil, NewBusinessError("TOKEN_REVOKE_FAILED", "Failed to revoke token", err)
	}
	af.logger.Printf("auth: operator logged out %s", metadata.String())
	return &dto.LogoutResponse{
		Operator:  claims.Username,
		RevokedAt: utils.UTCNowRFC3339(),
	}, nil
}

// Operators returns the configured usernames in sorted order
func (af *AuthFlowImpl) Operators() []string {
	out := make([]string, 0, len(af.hashes))
	for username := range af.hashes {
		out = append(out, username)
	}
	sort.Strings(out)
	return out
}

func (af *AuthFlowImpl) lookup(username string) ([]byte, bool) {
	for known, hash := range af.hashes {
		if subtle.ConstantTimeCompare([]byte(known), []byte(username)) == 1 {
			return hash, true
		}
	}
	return af.dummyHash, false
}
