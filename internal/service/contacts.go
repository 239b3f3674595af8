package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/contacts-api/internal/cache"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

const (
	MsgContactNotFound  = "Contact not found"
	MsgContactDuplicate = "Contact with this email or phone already exists"

	DefaultLimit = 100
	MaxLimit     = 500
)

// Page is a skip/limit window over an ordered result.
type Page struct {
	Skip  int
	Limit int
}

// Normalized clamps the page to sane bounds.
func (p Page) Normalized() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// ContactService manages the caller's contacts. Reads go through the cache
// and every write moves the owner to a fresh cache generation.
type ContactService struct {
	contacts ContactStore
	cache    *cache.Store
	now      func() time.Time
}

func NewContactService(contacts ContactStore, c *cache.Store) *ContactService {
	if c == nil {
		c = cache.New(nil, "", 0)
	}
	return &ContactService{contacts: contacts, cache: c, now: time.Now}
}

// WithClock replaces time.Now for the birthday window.
func (s *ContactService) WithClock(now func() time.Time) *ContactService {
	s.now = now
	return s
}

// List returns one page of the owner's contacts.
func (s *ContactService) List(ctx context.Context, owner *model.User, p Page) ([]model.Contact, error) {
	p = p.Normalized()
	key := s.cache.ContactKey(ctx, owner.ID, "list", p.Skip, p.Limit)
	out, err := cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) ([]model.Contact, error) {
		return s.contacts.List(ctx, owner.ID, p.Skip, p.Limit)
	})
	if err != nil {
		return nil, internal("list contacts", err)
	}
	return nonNil(out), nil
}

// Get returns one of the owner's contacts.
func (s *ContactService) Get(ctx context.Context, owner *model.User, id uint64) (*model.Contact, error) {
	key := s.cache.ContactKey(ctx, owner.ID, "get", id)
	c, err := cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (*model.Contact, error) {
		c, err := s.contacts.Get(ctx, owner.ID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return c, err
	})
	if err != nil {
		return nil, internal("get contact", err)
	}
	if c == nil {
		return nil, notFound(MsgContactNotFound)
	}
	return c, nil
}

// Create adds a contact owned by owner.
func (s *ContactService) Create(ctx context.Context, owner *model.User, in model.ContactInput) (*model.Contact, error) {
	c := &model.Contact{UserID: owner.ID}
	in.Apply(c)
	if err := s.contacts.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(MsgContactDuplicate)
		}
		return nil, internal("create contact", err)
	}
	s.cache.InvalidateContacts(ctx, owner.ID)
	return c, nil
}

// Update replaces every writable field of the contact.
func (s *ContactService) Update(ctx context.Context, owner *model.User, id uint64, in model.ContactInput) (*model.Contact, error) {
	c := &model.Contact{ID: id, UserID: owner.ID}
	in.Apply(c)
	if err := s.contacts.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFound(MsgContactNotFound)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, conflict(MsgContactDuplicate)
		}
		return nil, internal("update contact", err)
	}
	s.cache.InvalidateContacts(ctx, owner.ID)
	return c, nil
}

// UpdateData replaces the free-text data field. Writing the current value
// again is a conflict.
func (s *ContactService) UpdateData(ctx context.Context, owner *model.User, id uint64, data string) (*model.Contact, error) {
	current, err := s.contacts.Get(ctx, owner.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(MsgContactNotFound)
		}
		return nil, internal("get contact", err)
	}
	if current.Data == data {
		return nil, conflict(fmt.Sprintf(`With this data "%s" data exists`, data))
	}
	c, err := s.contacts.UpdateData(ctx, owner.ID, id, data)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(MsgContactNotFound)
		}
		return nil, internal("update contact data", err)
	}
	s.cache.InvalidateContacts(ctx, owner.ID)
	return c, nil
}

// Remove deletes the contact and returns it as it was.
func (s *ContactService) Remove(ctx context.Context, owner *model.User, id uint64) (*model.Contact, error) {
	c, err := s.contacts.Get(ctx, owner.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(MsgContactNotFound)
		}
		return nil, internal("get contact", err)
	}
	if err := s.contacts.Delete(ctx, owner.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(MsgContactNotFound)
		}
		return nil, internal("delete contact", err)
	}
	s.cache.InvalidateContacts(ctx, owner.ID)
	return c, nil
}

// Birthdays returns contacts whose birthday falls within the next seven
// days, today included, ignoring the birth year.
func (s *ContactService) Birthdays(ctx context.Context, owner *model.User, p Page) ([]model.Contact, error) {
	p = p.Normalized()
	w := model.NewBirthdayWindow(s.now(), model.BirthdayWindowDays)
	out, err := s.contacts.Birthdays(ctx, owner.ID, w, p.Skip, p.Limit)
	if err != nil {
		return nil, internal("birthdays", err)
	}
	return nonNil(out), nil
}

// Search runs one owner-scoped query per non-empty field and returns the
// union ordered by id. Text fields match case-insensitive substrings and the
// birthday matches exactly.
func (s *ContactService) Search(ctx context.Context, owner *model.User, q model.ContactSearch) ([]model.Contact, error) {
	fields := []struct {
		field model.SearchField
		term  string
	}{
		{model.FieldFirstName, q.FirstName},
		{model.FieldLastName, q.LastName},
		{model.FieldEmail, q.Email},
		{model.FieldPhone, q.Phone},
	}

	seen := map[uint64]model.Contact{}
	for _, f := range fields {
		term := strings.TrimSpace(f.term)
		if term == "" {
			continue
		}
		found, err := s.contacts.SearchByField(ctx, owner.ID, f.field, term)
		if err != nil {
			return nil, internal("search contacts", err)
		}
		for _, c := range found {
			seen[c.ID] = c
		}
	}
	if !q.Birthday.IsZero() {
		found, err := s.contacts.SearchByBirthday(ctx, owner.ID, q.Birthday)
		if err != nil {
			return nil, internal("search contacts", err)
		}
		for _, c := range found {
			seen[c.ID] = c
		}
	}

	out := make([]model.Contact, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func nonNil(in []model.Contact) []model.Contact {
	if in == nil {
		return []model.Contact{}
	}
	return in
}
