package sdk

import "github.com/mbeoliero/nexochat/internal/entity"

// ===== Request types =====

// LoginRequest represents user login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUpRequest represents user registration request
type SignUpRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResponse carries the session token next to the user fields
type AuthResponse struct {
	Token string `json:"token"`
	entity.User
}

// UpdateMeRequest represents profile update request
type UpdateMeRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	Content   string  `json:"content"`
	ReplyToId *string `json:"replyToId,omitempty"`
}

// CreateChatRequest represents chat creation request.
// For a single member the server returns the existing direct chat if any.
type CreateChatRequest struct {
	Name        string   `json:"name"`
	MembersList []string `json:"membersList"`
}

// ProfilePictureResponse is returned after a picture upload
type ProfilePictureResponse struct {
	HasProfilePicture bool `json:"hasProfilePicture"`
}
