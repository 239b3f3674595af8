package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/contacts-api/internal/model"
)

// countingContacts counts store reads so tests can tell cache hits apart.
type countingContacts struct {
	ContactStore
	lists atomic.Int32
	gets  atomic.Int32
}

func (c *countingContacts) List(ctx context.Context, userID uint64, skip, limit int) ([]model.Contact, error) {
	c.lists.Add(1)
	return c.ContactStore.List(ctx, userID, skip, limit)
}

func (c *countingContacts) Get(ctx context.Context, userID, id uint64) (*model.Contact, error) {
	c.gets.Add(1)
	return c.ContactStore.Get(ctx, userID, id)
}

func contactInput(i int) model.ContactInput {
	return model.ContactInput{
		FirstName: fmt.Sprintf("string%d", i),
		LastName:  fmt.Sprintf("last%d", i),
		Email:     fmt.Sprintf("user%d@example.com", i),
		Phone:     fmt.Sprintf("+38050%07d", i),
		Birthday:  model.NewDate(2000, time.April, 20+i%10),
		Data:      "data",
	}
}

func TestContacts_CreateGetUpdateRemove(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()

	c, err := f.contacts.Create(ctx, owner, contactInput(1))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ID == 0 || c.UserID != owner.ID {
		t.Errorf("Create() = %+v", c)
	}

	got, err := f.contacts.Get(ctx, owner, c.ID)
	if err != nil || got.Email != "user1@example.com" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	in := contactInput(1)
	in.FirstName = "renamed"
	updated, err := f.contacts.Update(ctx, owner, c.ID, in)
	if err != nil || updated.FirstName != "renamed" {
		t.Fatalf("Update() = %+v, %v", updated, err)
	}
	if got, _ := f.contacts.Get(ctx, owner, c.ID); got.FirstName != "renamed" {
		t.Errorf("Get() after update FirstName = %q, want renamed", got.FirstName)
	}

	removed, err := f.contacts.Remove(ctx, owner, c.ID)
	if err != nil || removed.ID != c.ID {
		t.Fatalf("Remove() = %+v, %v", removed, err)
	}
	_, err = f.contacts.Get(ctx, owner, c.ID)
	wantKind(t, err, KindNotFound, MsgContactNotFound)
	_, err = f.contacts.Remove(ctx, owner, c.ID)
	wantKind(t, err, KindNotFound, MsgContactNotFound)
}

func TestContacts_OwnerScoping(t *testing.T) {
	f := newFixture(t)
	alice := f.confirmedUser(t, "alice", "alice@example.com", "p")
	bob := f.confirmedUser(t, "bob", "bob@example.com", "p")
	ctx := context.Background()

	c, err := f.contacts.Create(ctx, alice, contactInput(1))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err = f.contacts.Get(ctx, bob, c.ID)
	wantKind(t, err, KindNotFound, MsgContactNotFound)
	_, err = f.contacts.Update(ctx, bob, c.ID, contactInput(2))
	wantKind(t, err, KindNotFound, MsgContactNotFound)
	_, err = f.contacts.Remove(ctx, bob, c.ID)
	wantKind(t, err, KindNotFound, MsgContactNotFound)

	list, err := f.contacts.List(ctx, bob, Page{})
	if err != nil || len(list) != 0 {
		t.Errorf("List(bob) = %v, %v, want empty", list, err)
	}
}

func TestContacts_Duplicates(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()

	first, _ := f.contacts.Create(ctx, owner, contactInput(1))
	second, _ := f.contacts.Create(ctx, owner, contactInput(2))

	dup := contactInput(3)
	dup.Email = first.Email
	_, err := f.contacts.Create(ctx, owner, dup)
	wantKind(t, err, KindConflict, MsgContactDuplicate)

	clash := contactInput(2)
	clash.Phone = first.Phone
	_, err = f.contacts.Update(ctx, owner, second.ID, clash)
	wantKind(t, err, KindConflict, MsgContactDuplicate)
}

func TestContacts_UpdateDataConflict(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()
	c, _ := f.contacts.Create(ctx, owner, contactInput(1))

	got, err := f.contacts.UpdateData(ctx, owner, c.ID, "new data")
	if err != nil || got.Data != "new data" {
		t.Fatalf("UpdateData() = %+v, %v", got, err)
	}
	_, err = f.contacts.UpdateData(ctx, owner, c.ID, "new data")
	wantKind(t, err, KindConflict, `With this data "new data" data exists`)

	_, err = f.contacts.UpdateData(ctx, owner, 999, "x")
	wantKind(t, err, KindNotFound, MsgContactNotFound)
}

func TestContacts_ListPaging(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.contacts.Create(ctx, owner, contactInput(i)); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	page, err := f.contacts.List(ctx, owner, Page{Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 || page[0].FirstName != "string1" || page[1].FirstName != "string2" {
		t.Errorf("List(1,2) = %+v", page)
	}
	if all, _ := f.contacts.List(ctx, owner, Page{}); len(all) != 5 {
		t.Errorf("List() len = %d, want 5", len(all))
	}
}

func TestContacts_CacheHitSkipsStore(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()
	store := &countingContacts{ContactStore: f.store.Contacts()}
	svc := NewContactService(store, f.cache)

	for i := 0; i < 3; i++ {
		list, err := svc.List(ctx, owner, Page{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("List() = %v, want empty non-nil", list)
		}
	}
	if n := store.lists.Load(); n != 1 {
		t.Errorf("store List called %d times, want 1", n)
	}

	for i := 0; i < 2; i++ {
		_, err := svc.Get(ctx, owner, 42)
		wantKind(t, err, KindNotFound, MsgContactNotFound)
	}
	if n := store.gets.Load(); n != 1 {
		t.Errorf("store Get called %d times, want 1", n)
	}
}

func TestContacts_WriteInvalidatesReads(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()
	store := &countingContacts{ContactStore: f.store.Contacts()}
	svc := NewContactService(store, f.cache)

	if list, _ := svc.List(ctx, owner, Page{}); len(list) != 0 {
		t.Fatalf("List() = %v, want empty", list)
	}
	c, err := svc.Create(ctx, owner, contactInput(1))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	list, _ := svc.List(ctx, owner, Page{})
	if len(list) != 1 || list[0].ID != c.ID {
		t.Errorf("List() after create = %+v", list)
	}
	if n := store.lists.Load(); n != 2 {
		t.Errorf("store List called %d times, want 2", n)
	}

	if _, err := svc.UpdateData(ctx, owner, c.ID, "changed"); err != nil {
		t.Fatalf("UpdateData() error = %v", err)
	}
	if got, _ := svc.Get(ctx, owner, c.ID); got.Data != "changed" {
		t.Errorf("Get() after UpdateData Data = %q", got.Data)
	}
}

func TestContacts_CacheEntriesCarryTTL(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()

	if _, err := f.contacts.List(ctx, owner, Page{}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	key := f.cache.ContactKey(ctx, owner.ID, "list", 0, DefaultLimit)
	if !f.mr.Exists(key) {
		t.Fatalf("key %s not cached", key)
	}
	if ttl := f.mr.TTL(key); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
}

func TestContacts_ReadsSurviveCacheOutage(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()
	c, _ := f.contacts.Create(ctx, owner, contactInput(1))
	f.mr.Close()

	if got, err := f.contacts.Get(ctx, owner, c.ID); err != nil || got.ID != c.ID {
		t.Errorf("Get() with Redis down = %+v, %v", got, err)
	}
	if _, err := f.contacts.Create(ctx, owner, contactInput(2)); err != nil {
		t.Errorf("Create() with Redis down error = %v", err)
	}
}

func TestContacts_Birthdays(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()

	base := model.NewDate(2000, time.April, 20)
	for i := 0; i < 20; i++ {
		in := contactInput(i)
		in.Birthday = model.DateOf(base.AddDate(0, 0, i))
		if _, err := f.contacts.Create(ctx, owner, in); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	svc := f.contacts.WithClock(func() time.Time {
		return time.Date(2024, time.April, 22, 10, 0, 0, 0, time.UTC)
	})
	got, err := svc.Birthdays(ctx, owner, Page{})
	if err != nil {
		t.Fatalf("Birthdays() error = %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("Birthdays() len = %d, want 8", len(got))
	}
	for _, c := range got {
		md := c.Birthday.MonthDay()
		if md < "04-22" || md > "04-29" {
			t.Errorf("%s birthday %s outside window", c.FirstName, md)
		}
	}

	svc.WithClock(func() time.Time { return time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC) })
	if got, _ := svc.Birthdays(ctx, owner, Page{}); len(got) != 0 {
		t.Errorf("Birthdays() in January = %d, want 0", len(got))
	}
}

func TestContacts_SearchUnion(t *testing.T) {
	f := newFixture(t)
	owner := f.confirmedUser(t, "a", "a@example.com", "p")
	other := f.confirmedUser(t, "b", "b@example.com", "p")
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := f.contacts.Create(ctx, owner, contactInput(i)); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}
	foreign := contactInput(100)
	if _, err := f.contacts.Create(ctx, other, foreign); err != nil {
		t.Fatalf("Create(foreign) error = %v", err)
	}

	got, err := f.contacts.Search(ctx, owner, model.ContactSearch{FirstName: "0"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].FirstName != "string0" || got[1].FirstName != "string10" {
		t.Errorf("Search(first_name=0) = %+v, want string0 and string10", got)
	}

	got, _ = f.contacts.Search(ctx, owner, model.ContactSearch{FirstName: "STRING3", Email: "user4@"})
	if len(got) != 2 || got[0].FirstName != "string3" || got[1].FirstName != "string4" {
		t.Errorf("Search(first_name, email) = %+v, want string3 and string4", got)
	}

	got, _ = f.contacts.Search(ctx, owner, model.ContactSearch{FirstName: "string1", LastName: "last1"})
	if len(got) != 11 {
		t.Errorf("overlapping terms returned %d contacts, want 11 distinct", len(got))
	}

	got, _ = f.contacts.Search(ctx, owner, model.ContactSearch{Birthday: model.NewDate(2000, time.April, 21)})
	if len(got) != 2 {
		t.Errorf("Search(birthday) = %d, want 2", len(got))
	}

	got, err = f.contacts.Search(ctx, owner, model.ContactSearch{})
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("Search(empty) = %v, %v, want empty non-nil", got, err)
	}
}
