package auth

import (
	"os"
	"path/filepath"
	"testing"
)

type memRepo struct{ users []User }

func (m *memRepo) LoadAll() ([]User, error) { return append([]User{}, m.users...), nil }
func (m *memRepo) Upsert(u User) error {
	for i, x := range m.users {
		if x.ID == u.ID {
			m.users[i] = u
			return nil
		}
	}
	m.users = append(m.users, u)
	return nil
}
func (m *memRepo) Remove(id int64) error {
	out := make([]User, 0, len(m.users))
	for _, x := range m.users {
		if x.ID != id {
			out = append(out, x)
		}
	}
	m.users = out
	return nil
}

func TestServiceBasic(t *testing.T) {
	repo := &memRepo{users: []User{{ID: 10, Username: "alice"}}}
	svc, err := NewWithRepo(repo, 99, []int64{20})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	if !svc.IsAllowed(10) {
		t.Fatalf("repo preload not effective")
	}
	if !svc.IsAllowed(20) {
		t.Fatalf("initial env list not merged")
	}
	if !svc.IsAllowed(99) || !svc.IsAdmin(99) {
		t.Fatalf("admin must be allowed")
	}
	if svc.IsAllowed(30) || svc.IsAdmin(10) {
		t.Fatalf("unexpected access")
	}

	if err := svc.Upsert(User{ID: 30, Username: "bob"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !svc.IsAllowed(30) {
		t.Fatalf("upsert not effective")
	}

	if err := svc.Remove(10); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if svc.IsAllowed(10) {
		t.Fatalf("remove not effective")
	}

	lst := svc.List()
	if len(lst) != 3 || lst[0].ID != 20 || lst[2].ID != 99 {
		t.Fatalf("unexpected list %+v", lst)
	}
}

func TestActorName(t *testing.T) {
	svc, _ := NewWithRepo(&memRepo{users: []User{
		{ID: 1, Username: "alice", Name: "Alice Admin"},
		{ID: 2, Username: "bob"},
		{ID: 3, FirstName: "Carol"},
	}}, 0, []int64{4})

	cases := map[int64]string{1: "Alice Admin", 2: "bob", 3: "Carol", 4: "user4"}
	for id, want := range cases {
		got, ok := svc.Actor(id)
		if !ok || got != want {
			t.Fatalf("actor %d: got %q %v, want %q", id, got, ok, want)
		}
	}
	if _, ok := svc.Actor(5); ok {
		t.Fatalf("unknown user must be anonymous")
	}
}

func TestRememberKeepsConfiguredName(t *testing.T) {
	repo := &memRepo{users: []User{{ID: 1, Name: "Registrar"}}}
	svc, _ := NewWithRepo(repo, 0, nil)

	if err := svc.Remember(1, "reg", "Rita"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if got, _ := svc.Actor(1); got != "Registrar" {
		t.Fatalf("name overwritten: %q", got)
	}
	if repo.users[0].Username != "reg" {
		t.Fatalf("profile not persisted: %+v", repo.users[0])
	}
	if err := svc.Remember(7, "stranger", ""); err != nil || svc.IsAllowed(7) {
		t.Fatalf("remember must not allowlist strangers")
	}
}

func TestFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "allowlist.json")
	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	users, err := repo.LoadAll()
	if err != nil || len(users) != 0 {
		t.Fatalf("missing file: %v %v", users, err)
	}

	if err := repo.Upsert(User{ID: 1, Username: "alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(User{ID: 2, Username: "bob"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(User{ID: 1, Username: "alice", Name: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Remove(2); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reopened, _ := NewFileRepository(path)
	users, err = reopened.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Alice" {
		t.Fatalf("unexpected users %+v", users)
	}
}

func TestFileRepositoryMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, _ := NewFileRepository(path)
	users, err := repo.LoadAll()
	if err != nil || len(users) != 0 {
		t.Fatalf("malformed file: %v %v", users, err)
	}
	if err := repo.Upsert(User{ID: 5}); err != nil {
		t.Fatalf("upsert over malformed: %v", err)
	}
	users, _ = repo.LoadAll()
	if len(users) != 1 {
		t.Fatalf("want rewrite, got %+v", users)
	}
}
