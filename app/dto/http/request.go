package http

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest binds the standard OAuth2 password form fields.
type LoginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}
