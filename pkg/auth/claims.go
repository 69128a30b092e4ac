package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// AccessTokenClaims is the typed JWT payload the API trusts. Token issuance
// lives in the external identity service; this backend only verifies.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"uid"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
