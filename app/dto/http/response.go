package http

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// UserResponse withholds the password hash and the Google subject.
type UserResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type WhoamiResponse struct {
	User UserResponse `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
