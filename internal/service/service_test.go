package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/contacts-api/internal/cache"
	"github.com/iliyamo/contacts-api/internal/mail"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository/memory"
	"github.com/iliyamo/contacts-api/internal/token"
	"github.com/iliyamo/contacts-api/internal/utils"
)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, m mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) last(t *testing.T, kind mail.Kind) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Kind == kind {
			return o.sent[i]
		}
	}
	t.Fatalf("no %s message sent", kind)
	return mail.Message{}
}

type fixture struct {
	store    *memory.Store
	mr       *miniredis.Miniredis
	cache    *cache.Store
	tokens   *token.Service
	mailer   *outbox
	auth     *AuthService
	contacts *ContactService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		store:  memory.New(),
		mr:     mr,
		cache:  cache.New(cache.NewRedis(rdb), "test", time.Hour),
		tokens: token.New("test-secret", token.TTLs{}),
		mailer: &outbox{},
	}
	f.auth = NewAuthService(f.store.Users(), f.tokens, utils.BcryptHasher{Cost: bcrypt.MinCost}, f.mailer, f.cache, "https://example.com/avatar.png")
	f.contacts = NewContactService(f.store.Contacts(), f.cache)
	f.users = NewUserService(f.store.Users(), nil, f.cache)
	return f
}

// confirmedUser signs up and confirms an account.
func (f *fixture) confirmedUser(t *testing.T, username, email, password string) *model.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.auth.Signup(ctx, SignupInput{Username: username, Email: email, Password: password}, "http://localhost/"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if _, err := f.auth.ConfirmEmail(ctx, f.mailer.last(t, mail.KindVerifyEmail).Token); err != nil {
		t.Fatalf("ConfirmEmail() error = %v", err)
	}
	u, err := f.store.Users().GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	return u
}

func wantKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want %s %q", err, kind, msg)
	}
	if se.Kind != kind || se.Message != msg {
		t.Errorf("error = %s %q, want %s %q", se.Kind, se.Message, kind, msg)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(conflict("x")) != KindConflict {
		t.Error("KindOf(conflict) should be KindConflict")
	}
	if KindOf(internal("op", errors.New("db down"))) != KindInternal {
		t.Error("wrapped plain errors should be KindInternal")
	}
}

func TestPage_Normalized(t *testing.T) {
	p := Page{Skip: -3, Limit: 0}.Normalized()
	if p.Skip != 0 || p.Limit != DefaultLimit {
		t.Errorf("Normalized() = %+v", p)
	}
	if p := (Page{Limit: 10_000}).Normalized(); p.Limit != MaxLimit {
		t.Errorf("Limit = %d, want %d", p.Limit, MaxLimit)
	}
}
