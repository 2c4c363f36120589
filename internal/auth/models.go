package auth

import (
	"time"

	"github.com/google/uuid"

	"yaothink/internal/database"
)

// SendCodeRequest asks for an SMS verification code.
type SendCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// SendCodeResult is the send-code response payload. DebugCode is echoed only
// outside production so frontend development works without a real SMS provider.
type SendCodeResult struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
	DebugCode string `json:"debug_code,omitempty"`
}

// PhoneSmsLoginRequest logs in with phone + verification code. Unknown phone
// numbers are auto-registered.
type PhoneSmsLoginRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6"`
}

// PhonePasswordLoginRequest logs in with phone + password.
type PhonePasswordLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// EmailPasswordLoginRequest logs in with email + password.
type EmailPasswordLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// PhoneRegisterRequest registers with phone + verification code + password.
type PhoneRegisterRequest struct {
	Phone    string  `json:"phone" binding:"required"`
	Code     string  `json:"code" binding:"required,len=6"`
	Password string  `json:"password" binding:"required,min=6"`
	Nickname *string `json:"nickname,omitempty"`
}

// EmailRegisterRequest registers with email + password.
type EmailRegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	Nickname *string `json:"nickname,omitempty"`
}

// SetPasswordRequest sets or resets a password after code verification.
// Exactly one of Phone or Email identifies the account.
type SetPasswordRequest struct {
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// UpdateProfileRequest carries merge-patch profile updates; nil fields stay
// untouched.
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
}

// UserProfile is the user object returned to clients.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Nickname    *string   `json:"nickname"`
	Avatar      *string   `json:"avatar"`
	Gender      *string   `json:"gender"`
	IsVIP       bool      `json:"is_vip"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResult is the success payload of every login and register endpoint.
type AuthResult struct {
	User      *UserProfile `json:"user"`
	Token     Token        `json:"token"`
	IsNewUser bool         `json:"is_new_user"`
}

func profileFromUser(u *database.User) *UserProfile {
	return &UserProfile{
		ID:          u.ID,
		Phone:       u.Phone,
		Email:       u.Email,
		Nickname:    u.Nickname,
		Avatar:      u.Avatar,
		Gender:      u.Gender,
		IsVIP:       u.IsVIP,
		HasPassword: u.HashedPassword != nil,
		CreatedAt:   u.CreatedAt,
	}
}
