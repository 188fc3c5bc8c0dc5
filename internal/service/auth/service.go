package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"support-console-backend/internal/database"
	internaljwt "support-console-backend/internal/jwt"
	"support-console-backend/internal/model"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

var (
	createTokenWithRefresh = internaljwt.CreateTokenWithRefresh
	refreshAccessToken     = internaljwt.RefreshToken
)

func SetTokenIssuer(issuer func(internaljwt.Operator, internaljwt.Role, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		createTokenWithRefresh = internaljwt.CreateTokenWithRefresh
		return
	}
	createTokenWithRefresh = issuer
}

func SetTokenRefresher(refresher func(string, internaljwt.Role) (string, error)) {
	if refresher == nil {
		refreshAccessToken = internaljwt.RefreshToken
		return
	}
	refreshAccessToken = refresher
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

// RegisterOperator provisions a console account. Only admins can do this;
// affiliate-role accounts must name the affiliate they belong to.
func (s *Service) RegisterOperator(ctx context.Context, identity Identity, params RegisterOperatorParams) (model.OperatorItem, error) {
	if identity.Role != model.RoleAdmin {
		return model.OperatorItem{}, newError(ErrorCodeForbidden, "only admins can register operators", nil)
	}

	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)
	name := strings.TrimSpace(params.Name)
	role := strings.TrimSpace(params.Role)
	affiliateID := strings.TrimSpace(params.AffiliateID)

	if email == "" || password == "" {
		return model.OperatorItem{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}
	if role != model.RoleAdmin && role != model.RoleAffiliate {
		return model.OperatorItem{}, newError(ErrorCodeValidation, "unknown role: "+role, nil)
	}
	if role == model.RoleAffiliate && affiliateID == "" {
		return model.OperatorItem{}, newError(ErrorCodeValidation, "affiliate operators need an affiliateId", nil)
	}

	if _, err := s.repo.FindOperatorByEmail(ctx, email); err == nil {
		return model.OperatorItem{}, newError(ErrorCodeConflict, "email already registered", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return model.OperatorItem{}, newError(ErrorCodeInternal, "failed to check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return model.OperatorItem{}, newError(ErrorCodeInternal, "failed to hash password", err)
	}

	operator := model.OperatorItem{
		OperatorID:   uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		AffiliateID:  affiliateID,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.CreateOperator(ctx, operator); err != nil {
		return model.OperatorItem{}, newError(ErrorCodeInternal, "failed to save operator", err)
	}

	return operator, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	operator, err := s.repo.FindOperatorByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", err)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to load operator", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tokens, err := createTokenWithRefresh(jwtOperator(operator), internaljwt.RoleOperator, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		Operator: operator,
		Tokens:   tokens,
	}, nil
}

func (s *Service) Refresh(refreshToken string) (internaljwt.TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return internaljwt.TokenResponse{}, newError(ErrorCodeValidation, "refresh token is required", nil)
	}

	accessToken, err := refreshAccessToken(refreshToken, internaljwt.RoleOperator)
	if err != nil {
		return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "invalid refresh token", err)
	}

	return internaljwt.TokenResponse{AccessToken: accessToken}, nil
}

func (s *Service) Profile(ctx context.Context, identity Identity) (ProfileResult, error) {
	if identity.OperatorID == "" {
		return ProfileResult{}, newError(ErrorCodeUnauthorized, "invalid operator identity", nil)
	}

	operator, err := s.repo.GetOperator(ctx, identity.OperatorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileResult{}, newError(ErrorCodeNotFound, "operator not found", err)
		}
		return ProfileResult{}, newError(ErrorCodeInternal, "failed to load operator", err)
	}

	return ProfileResult{Operator: operator}, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return s.IdentityFromToken(token)
}

func (s *Service) IdentityFromToken(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleOperator)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	operator := internaljwt.OperatorFromClaims(claims)
	if operator.ID == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "token missing identifiers", nil)
	}

	return Identity{
		OperatorID:  operator.ID,
		Email:       operator.Email,
		Role:        operator.Role,
		AffiliateID: operator.AffiliateID,
	}, nil
}

func jwtOperator(operator model.OperatorItem) internaljwt.Operator {
	return internaljwt.Operator{
		ID:          operator.OperatorID,
		Email:       operator.Email,
		Role:        operator.Role,
		AffiliateID: operator.AffiliateID,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
