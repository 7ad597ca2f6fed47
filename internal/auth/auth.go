// Package auth decides which Telegram users may talk to the student
// assistant and under which actor name their commands are audited.
package auth

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// User is an allowlisted account. Name, when set, is the actor name recorded
// in the audit and chat logs.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Name      string `json:"name,omitempty"`
}

// ActorName is the identity used for audit entries.
func (u User) ActorName() string {
	switch {
	case strings.TrimSpace(u.Name) != "":
		return strings.TrimSpace(u.Name)
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return fmt.Sprintf("user%d", u.ID)
	}
}

type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID int64) error
}

type Service struct {
	repo    Repository
	adminID int64

	mu    sync.RWMutex
	users map[int64]User
}

// NewWithRepo preloads the repository and merges ids from the environment.
// The admin is always allowed.
func NewWithRepo(repo Repository, adminID int64, initial []int64) (*Service, error) {
	s := &Service{repo: repo, adminID: adminID, users: make(map[int64]User)}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load allowlist: %w", err)
		}
		for _, u := range users {
			s.users[u.ID] = u
		}
	}
	ids := append([]int64{}, initial...)
	if adminID != 0 {
		ids = append(ids, adminID)
	}
	for _, id := range ids {
		if _, ok := s.users[id]; !ok {
			s.users[id] = User{ID: id}
		}
	}
	return s, nil
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

func (s *Service) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

// Actor returns the audit name for an allowlisted user. Unknown users get
// ok == false and must be treated as anonymous.
func (s *Service) Actor(userID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", false
	}
	return u.ActorName(), true
}

// Remember fills in Telegram profile fields for an allowlisted user without
// touching an explicitly configured Name.
func (s *Service) Remember(userID int64, username, firstName string) error {
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok || (u.Username == username && u.FirstName == firstName) {
		s.mu.Unlock()
		return nil
	}
	u.Username, u.FirstName = username, firstName
	s.users[userID] = u
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Upsert(u)
	}
	return nil
}

func (s *Service) Upsert(user User) error {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Upsert(user)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

// List returns allowlisted users ordered by id.
func (s *Service) List() []User {
	s.mu.RLock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
