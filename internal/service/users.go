package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/contacts-api/internal/cache"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
)

const (
	MsgAvatarDisabled = "Avatar uploads are not configured"
	MsgAvatarNotImage = "Avatar must be an image"
	MsgUserNotFound   = "User not found"
)

// sniffLen is how much of an upload http.DetectContentType looks at.
const sniffLen = 512

// Upload is an avatar image received from the client. ContentType is
// overwritten with the type detected from the body.
type Upload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// UserService covers the caller's own account.
type UserService struct {
	users   UserStore
	avatars AvatarStorage
	cache   *cache.Store
}

// NewUserService builds the service. A nil avatars disables uploads.
func NewUserService(users UserStore, avatars AvatarStorage, c *cache.Store) *UserService {
	if c == nil {
		c = cache.New(nil, "", 0)
	}
	return &UserService{users: users, avatars: avatars, cache: c}
}

func avatarKey(u *model.User) string { return "avatars/" + u.Username }

// sniffImage replaces the client-declared content type with the one detected
// from the leading bytes and rejects anything that is not an image.
func sniffImage(up Upload) (Upload, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return up, internal("read avatar", err)
	}
	head = head[:n]
	ct := http.DetectContentType(head)
	if !strings.HasPrefix(ct, "image/") {
		return up, unprocessable(MsgAvatarNotImage)
	}
	up.Body = io.MultiReader(bytes.NewReader(head), up.Body)
	up.ContentType = ct
	return up, nil
}

// UpdateAvatar stores the image under a per-user key and saves its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, u *model.User, up Upload) (*model.User, error) {
	if s.avatars == nil {
		return nil, badRequest(MsgAvatarDisabled)
	}
	up, err := sniffImage(up)
	if err != nil {
		return nil, err
	}
	url, err := s.avatars.Put(ctx, avatarKey(u), up.Body, up.Size, up.ContentType)
	if err != nil {
		return nil, internal("upload avatar", err)
	}
	updated, err := s.users.UpdateAvatar(ctx, u.Email, url)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(MsgUserNotFound)
		}
		return nil, internal("update avatar", err)
	}
	s.cache.InvalidateUser(ctx, u.Email)
	return updated, nil
}

// Remove deletes the account and its contacts.
func (s *UserService) Remove(ctx context.Context, u *model.User) error {
	if err := s.users.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgUserNotFound)
		}
		return internal("delete user", err)
	}
	s.cache.InvalidateUser(ctx, u.Email)
	s.cache.InvalidateContacts(ctx, u.ID)
	if s.avatars != nil {
		if err := s.avatars.Delete(ctx, avatarKey(u)); err != nil {
			log.Warn().Err(err).Uint64("user_id", u.ID).Msg("avatar cleanup failed")
		}
	}
	return nil
}
