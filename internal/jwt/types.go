package jwt

type Role int

const (
	RoleOperator Role = iota + 1
)

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Operator is the identity carried inside console access tokens. Role is the
// console role (admin or affiliate); AffiliateID is set only for
// affiliate-scoped operators.
type Operator struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AffiliateID string `json:"affiliateId,omitempty"`
}
