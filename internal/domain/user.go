package domain

import "time"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is one of the supported UI themes.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Preferences holds per-user UI options.
type Preferences struct {
	Theme Theme
}

// DefaultPreferences returns the preferences a new user starts with.
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight}
}

// User represents an authenticated user of the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string `json:"-"`
	LastLoginAt  time.Time
	Preferences  Preferences
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
