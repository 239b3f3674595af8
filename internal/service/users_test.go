package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/iliyamo/contacts-api/internal/token"
)

type fakeAvatars struct {
	objects map[string]string
	types   map[string]string
}

func (f *fakeAvatars) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = string(b)
	if f.types != nil {
		f.types[key] = contentType
	}
	return "http://storage.local/" + key, nil
}

func (f *fakeAvatars) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

// pngImage is a PNG signature followed by enough bytes to look like a file.
var pngImage = "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 600)

func TestUsers_UpdateAvatar(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "deadpool", "deadpool@example.com", "p")
	ctx := context.Background()
	avatars := &fakeAvatars{objects: map[string]string{}, types: map[string]string{}}
	svc := NewUserService(f.store.Users(), avatars, f.cache)

	// Warm the user cache so the update has something to invalidate.
	access, _, _ := f.tokens.Issue(token.Access, u.Email)
	if _, err := f.auth.CurrentUser(ctx, access); err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}

	updated, err := svc.UpdateAvatar(ctx, u, Upload{Body: strings.NewReader(pngImage), Size: int64(len(pngImage)), ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	if updated.Avatar != "http://storage.local/avatars/deadpool" {
		t.Errorf("Avatar = %q", updated.Avatar)
	}
	if avatars.objects["avatars/deadpool"] != pngImage {
		t.Error("image not stored whole under the user's key")
	}
	if ct := avatars.types["avatars/deadpool"]; ct != "image/png" {
		t.Errorf("stored content type = %q, want the detected image/png", ct)
	}

	me, err := f.auth.CurrentUser(ctx, access)
	if err != nil || me.Avatar != updated.Avatar {
		t.Errorf("CurrentUser() after update = %+v, %v; cached snapshot not dropped", me, err)
	}
}

func TestUsers_UpdateAvatarRejectsNonImages(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "a", "a@example.com", "p")
	avatars := &fakeAvatars{objects: map[string]string{}}
	svc := NewUserService(f.store.Users(), avatars, f.cache)

	for name, body := range map[string]string{
		"html":  "<html><script>alert(1)</script></html>",
		"text":  "just some text",
		"empty": "",
	} {
		t.Run(name, func(t *testing.T) {
			up := Upload{Body: strings.NewReader(body), Size: int64(len(body)), ContentType: "image/png"}
			_, err := svc.UpdateAvatar(context.Background(), u, up)
			wantKind(t, err, KindUnprocessable, MsgAvatarNotImage)
		})
	}
	if len(avatars.objects) != 0 {
		t.Errorf("stored %d objects, want none", len(avatars.objects))
	}
}

func TestUsers_UpdateAvatarDisabled(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "a", "a@example.com", "p")

	_, err := f.users.UpdateAvatar(context.Background(), u, Upload{Body: strings.NewReader("x")})
	wantKind(t, err, KindBadRequest, MsgAvatarDisabled)
}

func TestUsers_RemoveCascades(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "a", "a@example.com", "p")
	ctx := context.Background()
	avatars := &fakeAvatars{objects: map[string]string{"avatars/a": "img"}}
	svc := NewUserService(f.store.Users(), avatars, f.cache)

	c, err := f.contacts.Create(ctx, u, contactInput(1))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Remove(ctx, u); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := avatars.objects["avatars/a"]; ok {
		t.Error("avatar should be deleted")
	}
	if _, err := f.store.Contacts().Get(ctx, u.ID, c.ID); err == nil {
		t.Error("contacts should be deleted with their owner")
	}

	access, _, _ := f.tokens.Issue(token.Access, u.Email)
	_, err = f.auth.CurrentUser(ctx, access)
	wantKind(t, err, KindUnauthorized, MsgBadCredentials)

	err = svc.Remove(ctx, u)
	wantKind(t, err, KindNotFound, MsgUserNotFound)
}
