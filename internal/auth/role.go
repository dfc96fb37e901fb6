package auth

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleChief   Role = "Chief"
	RoleStaff   Role = "Staff"
)

var roles = []Role{RoleAdmin, RoleManager, RoleChief, RoleStaff}

// Roles returns the closed set of roles in canonical form.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole matches s against the role set ignoring case and surrounding
// whitespace. Anything else is an error; there is no fallback role.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the canonical role constants.
func (r Role) Valid() bool {
	return r.Tier() != TierNone
}

func (r Role) String() string { return string(r) }

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

// UnmarshalText accepts any casing and stores the canonical name, so JSON and
// YAML decoding both normalise roles.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Tier is the access class a role belongs to.
type Tier int

const (
	TierNone Tier = iota
	// TierFull sees every record and may mutate them.
	TierFull
	// TierRestricted only sees Staff records.
	TierRestricted
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierRestricted:
		return "restricted"
	default:
		return "none"
	}
}

func (r Role) Tier() Tier {
	switch r {
	case RoleAdmin, RoleManager:
		return TierFull
	case RoleChief, RoleStaff:
		return TierRestricted
	default:
		return TierNone
	}
}

// CanMutate reports whether r may create, update or delete records.
func (r Role) CanMutate() bool {
	return r.Tier() == TierFull
}
