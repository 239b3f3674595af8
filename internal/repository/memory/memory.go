// Package memory is an in-process store with the same behaviour as the MySQL
// repositories: unique users by email and username, unique contacts by email
// and phone, owner-scoped contact queries and cascading user deletes. It backs
// STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

// Store holds users and contacts behind one mutex.
type Store struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	contacts map[uint64]model.Contact
	nextUser uint64
	nextCont uint64
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    map[uint64]model.User{},
		contacts: map[uint64]model.Contact{},
		now:      time.Now,
	}
}

// Users exposes the user half of the store.
func (s *Store) Users() *Users { return &Users{s} }

// Contacts exposes the contact half of the store.
func (s *Store) Contacts() *Contacts { return &Contacts{s} }

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Users implements the user store.
type Users struct{ s *Store }

func (u *Users) find(match func(model.User) bool) (*model.User, error) {
	for _, v := range u.s.users {
		if match(v) {
			out := v
			if v.RefreshToken != nil {
				rt := *v.RefreshToken
				out.RefreshToken = &rt
			}
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	email = normEmail(email)
	return u.find(func(v model.User) bool { return v.Email == email })
}

func (u *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	username = strings.TrimSpace(username)
	return u.find(func(v model.User) bool { return v.Username == username })
}

func (u *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return u.find(func(v model.User) bool { return v.ID == id })
}

func (u *Users) Create(_ context.Context, nu *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	nu.Email = normEmail(nu.Email)
	for _, v := range u.s.users {
		if v.Email == nu.Email || v.Username == nu.Username {
			return repository.ErrDuplicate
		}
	}
	u.s.nextUser++
	now := u.s.now().UTC()
	nu.ID, nu.CreatedAt, nu.UpdatedAt = u.s.nextUser, now, now
	u.s.users[nu.ID] = *nu
	return nil
}

func (u *Users) SetRefreshToken(_ context.Context, id uint64, token *string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	v, ok := u.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if token != nil {
		t := *token
		token = &t
	}
	v.RefreshToken = token
	u.s.users[id] = v
	return nil
}

func (u *Users) SwapRefreshToken(_ context.Context, id uint64, old, next string) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	v, ok := u.s.users[id]
	if !ok || v.RefreshToken == nil || *v.RefreshToken != old {
		return false, nil
	}
	v.RefreshToken = &next
	u.s.users[id] = v
	return true, nil
}

func (u *Users) update(email string, apply func(*model.User)) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	email = normEmail(email)
	for id, v := range u.s.users {
		if v.Email == email {
			apply(&v)
			v.UpdatedAt = u.s.now().UTC()
			u.s.users[id] = v
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u *Users) ConfirmEmail(_ context.Context, email string) error {
	_, err := u.update(email, func(v *model.User) { v.Confirmed = true })
	return err
}

func (u *Users) UpdatePassword(_ context.Context, email, hash string) error {
	_, err := u.update(email, func(v *model.User) { v.Password = hash })
	return err
}

func (u *Users) UpdateAvatar(_ context.Context, email, url string) (*model.User, error) {
	return u.update(email, func(v *model.User) { v.Avatar = url })
}

func (u *Users) Delete(_ context.Context, id uint64) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(u.s.users, id)
	for cid, c := range u.s.contacts {
		if c.UserID == id {
			delete(u.s.contacts, cid)
		}
	}
	return nil
}

// Contacts implements the contact store.
type Contacts struct{ s *Store }

// filter returns the owner's contacts that satisfy keep, ordered by id.
func (c *Contacts) filter(userID uint64, keep func(model.Contact) bool) []model.Contact {
	out := []model.Contact{}
	for _, v := range c.s.contacts {
		if v.UserID == userID && keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func page(in []model.Contact, skip, limit int) []model.Contact {
	if skip >= len(in) {
		return []model.Contact{}
	}
	in = in[skip:]
	if limit < len(in) {
		in = in[:limit]
	}
	return in
}

// conflicts reports whether another contact already uses c's email or phone.
func (c *Contacts) conflicts(nc model.Contact) bool {
	for _, v := range c.s.contacts {
		if v.ID != nc.ID && (v.Email == nc.Email || v.Phone == nc.Phone) {
			return true
		}
	}
	return false
}

func (c *Contacts) List(_ context.Context, userID uint64, skip, limit int) ([]model.Contact, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return page(c.filter(userID, func(model.Contact) bool { return true }), skip, limit), nil
}

func (c *Contacts) Get(_ context.Context, userID, id uint64) (*model.Contact, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	v, ok := c.s.contacts[id]
	if !ok || v.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (c *Contacts) Create(_ context.Context, nc *model.Contact) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	nc.ID = 0
	if c.conflicts(*nc) {
		return repository.ErrDuplicate
	}
	c.s.nextCont++
	now := c.s.now().UTC()
	nc.ID, nc.CreatedAt, nc.UpdatedAt = c.s.nextCont, now, now
	c.s.contacts[nc.ID] = *nc
	return nil
}

func (c *Contacts) Update(_ context.Context, uc *model.Contact) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	v, ok := c.s.contacts[uc.ID]
	if !ok || v.UserID != uc.UserID {
		return repository.ErrNotFound
	}
	if c.conflicts(*uc) {
		return repository.ErrDuplicate
	}
	uc.CreatedAt, uc.UpdatedAt = v.CreatedAt, c.s.now().UTC()
	c.s.contacts[uc.ID] = *uc
	return nil
}

func (c *Contacts) UpdateData(_ context.Context, userID, id uint64, data string) (*model.Contact, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	v, ok := c.s.contacts[id]
	if !ok || v.UserID != userID {
		return nil, repository.ErrNotFound
	}
	v.Data, v.UpdatedAt = data, c.s.now().UTC()
	c.s.contacts[id] = v
	return &v, nil
}

func (c *Contacts) Delete(_ context.Context, userID, id uint64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	v, ok := c.s.contacts[id]
	if !ok || v.UserID != userID {
		return repository.ErrNotFound
	}
	delete(c.s.contacts, id)
	return nil
}

func (c *Contacts) Birthdays(_ context.Context, userID uint64, w model.BirthdayWindow, skip, limit int) ([]model.Contact, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return page(c.filter(userID, func(v model.Contact) bool { return w.Contains(v.Birthday) }), skip, limit), nil
}

func (c *Contacts) SearchByField(_ context.Context, userID uint64, field model.SearchField, term string) ([]model.Contact, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.filter(userID, func(v model.Contact) bool { return v.MatchesSubstring(field, term) }), nil
}

func (c *Contacts) SearchByBirthday(_ context.Context, userID uint64, d model.Date) ([]model.Contact, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.filter(userID, func(v model.Contact) bool { return v.Birthday.Equal(d.Time) }), nil
}
