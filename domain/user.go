package domain

import (
	"math/rand"
	"time"
)

// palette holds the accent colors assigned to user avatars.
var palette = []string{
	"#6366f1",
	"#ec4899",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#14b8a6",
	"#f97316",
}

// User describes one identified connection. Exactly one descriptor exists
// per open connection and it is never persisted.
type User struct {
	ConnectionID string    `json:"connectionId"`
	Username     string    `json:"username"`
	Color        string    `json:"color"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// Identity is the self-description a client supplies when identifying.
type Identity struct {
	Username string `json:"username"`
	Color    string `json:"color"`
}

// NewUser builds the descriptor for a connection, filling missing identity
// fields with defaults.
func NewUser(connectionID string, id Identity, connectedAt time.Time) User {
	u := User{
		ConnectionID: connectionID,
		Username:     id.Username,
		Color:        id.Color,
		ConnectedAt:  connectedAt,
	}
	if u.Username == "" {
		u.Username = DefaultUsername(connectionID)
	}
	if u.Color == "" {
		u.Color = RandomColor()
	}
	return u
}

// DefaultUsername derives a display name from the connection id.
func DefaultUsername(connectionID string) string {
	if len(connectionID) > 6 {
		connectionID = connectionID[:6]
	}
	return "User-" + connectionID
}

// RandomColor picks an avatar color from the palette.
func RandomColor() string {
	return palette[rand.Intn(len(palette))]
}

// Palette returns the known avatar colors.
func Palette() []string {
	return append([]string(nil), palette...)
}
