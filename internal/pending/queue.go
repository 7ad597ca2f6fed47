// Package pending holds access requests from Telegram users who are not on
// the allowlist yet, until the admin approves or denies them.
package pending

import (
	"fmt"
	"sort"
	"sync"

	"student-chatter/internal/auth"
)

type Queue struct {
	repo auth.Repository

	mu   sync.Mutex
	reqs map[int64]auth.User
}

// NewQueue loads outstanding requests from repo. A nil repo keeps them in memory only.
func NewQueue(repo auth.Repository) (*Queue, error) {
	q := &Queue{repo: repo, reqs: make(map[int64]auth.User)}
	if repo == nil {
		return q, nil
	}
	users, err := repo.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}
	for _, u := range users {
		q.reqs[u.ID] = u
	}
	return q, nil
}

// Add records a request. added is false when the user already waits.
func (q *Queue) Add(u auth.User) (added bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.reqs[u.ID]; ok {
		return false, nil
	}
	q.reqs[u.ID] = u
	if q.repo != nil {
		if err := q.repo.Upsert(u); err != nil {
			return true, fmt.Errorf("persist request: %w", err)
		}
	}
	return true, nil
}

// Take removes and returns the request of userID.
func (q *Queue) Take(userID int64) (auth.User, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.reqs[userID]
	if !ok {
		return auth.User{}, false, nil
	}
	delete(q.reqs, userID)
	if q.repo != nil {
		if err := q.repo.Remove(userID); err != nil {
			return u, true, fmt.Errorf("drop request: %w", err)
		}
	}
	return u, true, nil
}

func (q *Queue) Has(userID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.reqs[userID]
	return ok
}

// List returns waiting users ordered by id.
func (q *Queue) List() []auth.User {
	q.mu.Lock()
	out := make([]auth.User, 0, len(q.reqs))
	for _, u := range q.reqs {
		out = append(out, u)
	}
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
