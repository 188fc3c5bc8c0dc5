package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RegisterOperatorRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	AffiliateID string `json:"affiliateId,omitempty"`
}

type OperatorResponse struct {
	OperatorID  string `json:"operatorId"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role"`
	AffiliateID string `json:"affiliateId,omitempty"`
}

type AuthResponse struct {
	Operator     OperatorResponse `json:"operator"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken,omitempty"`
}
