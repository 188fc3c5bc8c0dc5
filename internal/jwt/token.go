package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"

	"support-console-backend/utils"
)

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleOperator:
		return token + "1"
	}
	return token
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleOperator:
		return "1"
	}
	return ""
}

func CreateToken(operator Operator, role Role, validUntil int64) (string, error) {
	secret, err := secretFor(role)
	if err != nil {
		return "", err
	}

	if validUntil == 0 {
		now := time.Now()
		validUntil = now.Add(AccessTokenDuration).Unix()
	}

	claims := jwt.MapClaims{
		"id":    operator.ID,
		"email": operator.Email,
		"role":  operator.Role,
		"exp":   validUntil,
	}
	if operator.AffiliateID != "" {
		claims["affiliateId"] = operator.AffiliateID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return appendRoleChar(tokenString, role), nil
}

func CreateTokenWithRefresh(operator Operator, role Role, validUntil int64) (TokenResponse, error) {
	accessToken, err := CreateToken(operator, role, validUntil)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshTokenRaw := utils.CreateToken()
	refreshToken := appendRoleChar(refreshTokenRaw, role)

	operatorJSON, _ := json.Marshal(operator)

	err = tokenRedis().Set(context.Background(), refreshTokenRaw, operatorJSON, RefreshTokenDuration).Err()
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Parse token (access) with role char validation
func ParseToken(tokenString string, role Role) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}

	if tokenString[len(tokenString)-1:] != expectedRoleChar(role) {
		return nil, fmt.Errorf("invalid role character in token")
	}
	tokenString = tokenString[:len(tokenString)-1] // Remove role char

	secret, err := secretFor(role)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}

	return claims, nil
}

func OperatorFromClaims(claims jwt.MapClaims) Operator {
	operator := Operator{}
	if id, ok := claims["id"].(string); ok {
		operator.ID = id
	}
	if email, ok := claims["email"].(string); ok {
		operator.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		operator.Role = role
	}
	if affiliateID, ok := claims["affiliateId"].(string); ok {
		operator.AffiliateID = affiliateID
	}
	return operator
}

func RefreshToken(refreshToken string, role Role) (string, error) {
	if len(refreshToken) == 0 {
		return "", fmt.Errorf("refresh token is empty")
	}
	if refreshToken[len(refreshToken)-1:] != expectedRoleChar(role) {
		return "", fmt.Errorf("invalid role character in refresh token")
	}
	refreshTokenRaw := refreshToken[:len(refreshToken)-1]

	val, err := tokenRedis().Get(context.Background(), refreshTokenRaw).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("invalid refresh token")
	} else if err != nil {
		return "", err
	}

	var operator Operator
	if err := json.Unmarshal([]byte(val), &operator); err != nil {
		return "", fmt.Errorf("invalid token data")
	}

	err = tokenRedis().Expire(context.Background(), refreshTokenRaw, RefreshTokenDuration).Err()
	if err != nil {
		return "", fmt.Errorf("failed to update refresh token expiration: %v", err)
	}

	return CreateToken(operator, role, 0)
}
