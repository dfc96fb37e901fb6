package users

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"authgate/internal/auth"
)

type usersFile struct {
	Users []struct {
		Username string    `yaml:"username"`
		Password string    `yaml:"password"`
		Role     auth.Role `yaml:"role"`
		Email    string    `yaml:"email"`
		Phone    string    `yaml:"phone"`
	} `yaml:"users"`
}

// LoadSeedFile reads a YAML user list. Roles are parsed case-insensitively;
// an unknown role fails the whole file.
func LoadSeedFile(path string) ([]NewUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]NewUser, 0, len(uf.Users))
	for _, u := range uf.Users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		out = append(out, NewUser{
			Username: u.Username,
			Password: u.Password,
			Role:     u.Role,
			Email:    u.Email,
			Phone:    u.Phone,
		})
	}
	return out, nil
}

// Seed creates every user that does not exist yet and leaves existing ones
// untouched. It returns how many were created.
func Seed(ctx context.Context, repo Repository, seed []NewUser) (int, error) {
	created := 0
	for _, u := range seed {
		if _, err := repo.FindByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return created, err
		}
		if _, err := repo.Create(ctx, u); err != nil {
			if errors.Is(err, ErrUsernameTaken) {
				continue
			}
			return created, fmt.Errorf("seed %s: %w", u.Username, err)
		}
		created++
	}
	return created, nil
}
