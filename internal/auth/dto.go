package auth

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// PreferencesUpdate carries optional preference changes.
type PreferencesUpdate struct {
	Theme         *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
	Notifications *bool   `json:"notifications,omitempty"`
	Newsletter    *bool   `json:"newsletter,omitempty"`
}

// ProfileUpdate merges into the current user; nil fields are left alone.
type ProfileUpdate struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Avatar      *string            `json:"avatar,omitempty" validate:"omitempty,url"`
	Preferences *PreferencesUpdate `json:"preferences,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}
