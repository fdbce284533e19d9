package domain

// Credentials is the email/password pair for /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload for /auth/register.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// GoogleLogin carries a Google ID token for /auth/google.
type GoogleLogin struct {
	Token string `json:"token"`
}

// AuthResponse is returned by every credential exchange.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Valid reports whether the response carries both a token and a user.
func (r *AuthResponse) Valid() bool {
	return r != nil && r.Token != "" && r.User.Valid()
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// PasswordChange rotates the account password.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
