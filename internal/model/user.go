package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           - primary key identifier of the user.
//  Username     - display name chosen at registration.
//  Email        - unique email address; the subject of every issued token.
//  PasswordHash - bcrypt hashed password. Plaintext never crosses this boundary.
//  Avatar       - optional URL of the profile image (empty when unset).
//  RefreshToken - the single active refresh token for this user (empty when
//                 none). Presenting any other refresh token is rejected.
//  Confirmed    - whether the email address has been verified.
//  CreatedAt    - timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Avatar       string    // users.avatar (nullable)
	RefreshToken string    // users.refresh_token (nullable)
	Confirmed    bool      // users.confirmed
	CreatedAt    time.Time // users.created_at
}
