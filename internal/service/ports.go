package service

import (
	"context"
	"io"

	"github.com/iliyamo/contacts-api/internal/model"
)

// UserStore persists users. Lookups return repository.ErrNotFound when no
// row matches and Create returns repository.ErrDuplicate on a taken email
// or username.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	SetRefreshToken(ctx context.Context, id uint64, token *string) error
	SwapRefreshToken(ctx context.Context, id uint64, old, next string) (bool, error)
	ConfirmEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, hash string) error
	UpdateAvatar(ctx context.Context, email, url string) (*model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// ContactStore persists contacts. Every method is scoped by owner.
type ContactStore interface {
	List(ctx context.Context, userID uint64, skip, limit int) ([]model.Contact, error)
	Get(ctx context.Context, userID, id uint64) (*model.Contact, error)
	Create(ctx context.Context, c *model.Contact) error
	Update(ctx context.Context, c *model.Contact) error
	UpdateData(ctx context.Context, userID, id uint64, data string) (*model.Contact, error)
	Delete(ctx context.Context, userID, id uint64) error
	Birthdays(ctx context.Context, userID uint64, w model.BirthdayWindow, skip, limit int) ([]model.Contact, error)
	SearchByField(ctx context.Context, userID uint64, field model.SearchField, term string) ([]model.Contact, error)
	SearchByBirthday(ctx context.Context, userID uint64, d model.Date) ([]model.Contact, error)
}

// PasswordHasher is a one-way password hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// AvatarStorage stores avatar images and returns their public URL.
type AvatarStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
