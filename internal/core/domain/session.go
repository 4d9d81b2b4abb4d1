package domain

// Session is the persisted credential set. Empty strings and a nil User mean absent.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
	Role         Role   `json:"role"`
}

// HasTokens reports whether both tokens are present, the condition for
// restoring an authenticated session.
func (s Session) HasTokens() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// TokenPair is a rotated access/refresh pair returned by the refresh endpoint.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the body returned by login and register.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
	Role         Role   `json:"role"`
}

// Session converts the response into a persistable session.
func (r AuthResponse) Session() Session {
	return Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		User:         r.User,
		Role:         r.Role,
	}
}
