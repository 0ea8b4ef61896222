package domain

import "time"

// TokenClaims are the verified contents of an identity token. They are
// a snapshot of the user at issuance time; later role changes do not
// affect tokens already issued.
type TokenClaims struct {
	UserID    string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
