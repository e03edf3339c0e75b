package auth

import (
	"net/url"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/nexusshop-storefront/pkg/auth"
	"github.com/google/uuid"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg"

// Preferences are the shopper's display and messaging settings.
type Preferences struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
	Newsletter    bool   `json:"newsletter"`
}

// User is the signed-in shopper profile.
type User struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Avatar      string       `json:"avatar,omitempty"`
	Role        pkgAuth.Role `json:"role"`
	Preferences Preferences  `json:"preferences"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastLogin   time.Time    `json:"lastLogin"`
}

// State is the session snapshot. It is also the stored shape under the auth
// persistence key.
type State struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	RefreshToken    string `json:"refreshToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func newMockUser(email, name string, now time.Time) User {
	return User{
		ID:     "user_" + uuid.NewString(),
		Email:  email,
		Name:   name,
		Avatar: avatarBaseURL + "?seed=" + url.QueryEscape(email),
		Role:   pkgAuth.RoleUser,
		Preferences: Preferences{
			Theme:         ThemeLight,
			Notifications: true,
			Newsletter:    true,
		},
		CreatedAt: now,
		LastLogin: now,
	}
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
