package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"authgate/internal/auth"
)

// MemoryStore keeps users in process memory. It backs development runs and
// tests; nothing outside the store reads its contents directly.
type MemoryStore struct {
	verifier auth.CredentialVerifier
	now      func() time.Time

	mu     sync.RWMutex
	byID   map[int64]auth.User
	nextID int64
}

func NewMemoryStore(verifier auth.CredentialVerifier) *MemoryStore {
	if verifier == nil {
		verifier = auth.PlaintextVerifier{}
	}
	return &MemoryStore{
		verifier: verifier,
		now:      time.Now,
		byID:     make(map[int64]auth.User),
		nextID:   1,
	}
}

// FixtureUsers are the bootstrap identities used for local runs.
func FixtureUsers() []NewUser {
	return []NewUser{
		{Username: "admin", Password: "1234", Role: auth.RoleAdmin},
		{Username: "chief", Password: "1234", Role: auth.RoleChief},
		{Username: "manager", Password: "1234", Role: auth.RoleManager},
		{Username: "staff", Password: "1234", Role: auth.RoleStaff},
	}
}

// NewFixtureStore returns a MemoryStore holding FixtureUsers.
func NewFixtureStore(verifier auth.CredentialVerifier) (*MemoryStore, error) {
	s := NewMemoryStore(verifier)
	for _, u := range FixtureUsers() {
		if _, err := s.Create(context.Background(), u); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemoryStore) FindByCredentials(ctx context.Context, username, password string) (*auth.User, error) {
	return findByCredentials(ctx, s, s.verifier, username, password)
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.lookupLocked(username); ok {
		return &u, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) lookupLocked(username string) (auth.User, bool) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, true
		}
	}
	return auth.User{}, false
}

func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]auth.User, error) {
	s.mu.RLock()
	out := make([]auth.User, 0, len(s.byID))
	for _, u := range s.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, nu NewUser) (*auth.User, error) {
	if err := nu.validate(); err != nil {
		return nil, err
	}
	secret, err := s.verifier.Hash(nu.Password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.lookupLocked(nu.Username); taken {
		return nil, ErrUsernameTaken
	}
	u := auth.User{
		ID:        s.nextID,
		Username:  nu.Username,
		Password:  secret,
		Role:      nu.Role,
		Email:     nu.Email,
		Phone:     nu.Phone,
		CreatedAt: s.now().UTC(),
	}
	s.byID[u.ID] = u
	s.nextID++
	return &u, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, up Update) error {
	if err := up.validate(); err != nil {
		return err
	}
	var secret *string
	if up.Password != nil {
		hashed, err := s.verifier.Hash(*up.Password)
		if err != nil {
			return err
		}
		secret = &hashed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if up.Username != nil && *up.Username != u.Username {
		if _, taken := s.lookupLocked(*up.Username); taken {
			return ErrUsernameTaken
		}
		u.Username = *up.Username
	}
	if secret != nil {
		u.Password = *secret
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.Phone != nil {
		u.Phone = *up.Phone
	}
	s.byID[id] = u
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.byID, id)
	return nil
}

var _ Repository = (*MemoryStore)(nil)
