package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Canonical claim keys are the URIs .NET services look for; downstream
// consumers of forwarded tokens read these.
const (
	ClaimName  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	ClaimRole  = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	ClaimEmail = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	ClaimPhone = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/mobilephone"

	ShortClaimRole  = "role"
	ShortClaimEmail = "email"
	ShortClaimPhone = "phone"
)

// Claims is the single in-memory form of a token body. Serialization emits
// every attribute under both its canonical and short key.
type Claims struct {
	Username string
	// Role is kept raw so the gate can distinguish a bad role (403) from a
	// bad token (401).
	Role  string
	Email string
	Phone string
	jwt.RegisteredClaims
}

type claimKeys struct {
	canonical string
	short     string
}

var (
	roleKeys  = claimKeys{ClaimRole, ShortClaimRole}
	emailKeys = claimKeys{ClaimEmail, ShortClaimEmail}
	phoneKeys = claimKeys{ClaimPhone, ShortClaimPhone}
)

func (c Claims) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(c.RegisteredClaims)
	if err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}

	put := func(key, value string) error {
		if strings.TrimSpace(value) == "" {
			return nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}
	pairs := []struct {
		keys  claimKeys
		value string
	}{
		{claimKeys{canonical: ClaimName}, c.Username},
		{roleKeys, c.Role},
		{emailKeys, c.Email},
		{phoneKeys, c.Phone},
	}
	for _, p := range pairs {
		if err := put(p.keys.canonical, p.value); err != nil {
			return nil, err
		}
		if p.keys.short != "" {
			if err := put(p.keys.short, p.value); err != nil {
				return nil, err
			}
		}
	}
	return json.Marshal(out)
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var reg jwt.RegisteredClaims
	if err := json.Unmarshal(data, &reg); err != nil {
		return err
	}

	str := func(key string) (string, error) {
		v, ok := raw[key]
		if !ok {
			return "", nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("claim %s: %w", key, err)
		}
		return s, nil
	}
	pair := func(k claimKeys) (string, error) {
		canonical, err := str(k.canonical)
		if err != nil {
			return "", err
		}
		short, err := str(k.short)
		if err != nil {
			return "", err
		}
		switch {
		case canonical == "":
			return short, nil
		case short == "" || short == canonical:
			return canonical, nil
		default:
			return "", nil
		}
	}

	name, err := str(ClaimName)
	if err != nil {
		return err
	}
	if name == "" {
		name = reg.Subject
	}
	// A diverging role pair leaves Role empty, which never parses.
	role, err := pair(roleKeys)
	if err != nil {
		return err
	}
	email, err := pair(emailKeys)
	if err != nil {
		return err
	}
	phone, err := pair(phoneKeys)
	if err != nil {
		return err
	}

	*c = Claims{
		Username:         name,
		Role:             role,
		Email:            email,
		Phone:            phone,
		RegisteredClaims: reg,
	}
	return nil
}
