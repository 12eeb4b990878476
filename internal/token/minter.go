// Package token mints connection grants for the external video room
// service: given a room, an identity and a role, it returns the room URL and
// a signed credential the room SDK presents on connect.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vantage/dispatch/internal/config"
)

// Role is what the grant allows inside the room.
type Role string

const (
	// RolePublisher may stream video into the room (a caller).
	RolePublisher Role = "publisher"
	// RoleViewer may only subscribe (a dispatcher console).
	RoleViewer Role = "viewer"
)

// ErrUnknownRole is returned when the requested role is neither publisher
// nor viewer.
var ErrUnknownRole = errors.New("token: unknown room role")

// Grant is a minted room credential.
type Grant struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// roomClaims is the JWT payload the room service expects.
type roomClaims struct {
	jwt.RegisteredClaims
	Room string `json:"room"`
	Role string `json:"role"`
}

// Minter signs room grants with a shared HS256 secret.
type Minter struct {
	cfg config.RoomTokenConfig
	now func() time.Time
}

// NewMinter returns a minter for the configured room service.
func NewMinter(cfg config.RoomTokenConfig) *Minter {
	return &Minter{cfg: cfg, now: time.Now}
}

// Mint issues a grant for identity to join room with the given role.
func (m *Minter) Mint(room, identity string, role Role) (Grant, error) {
	if role != RolePublisher && role != RoleViewer {
		return Grant{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.cfg.TTL)
	claims := roomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Room: room,
		Role: string(role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.SigningSecret))
	if err != nil {
		return Grant{}, fmt.Errorf("signing room token: %w", err)
	}

	return Grant{
		URL:       fmt.Sprintf("%s/rooms/%s", strings.TrimRight(m.cfg.RoomBaseURL, "/"), room),
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}
