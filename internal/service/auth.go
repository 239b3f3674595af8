package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/contacts-api/internal/cache"
	"github.com/iliyamo/contacts-api/internal/mail"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/repository"
	"github.com/iliyamo/contacts-api/internal/token"
)

// Client-facing messages.
const (
	MsgEmailExists       = "An account with this email exists"
	MsgUsernameExists    = "An account with this username exists"
	MsgInvalidEmail      = "Invalid email"
	MsgEmailNotConfirmed = "Email not confirmed"
	MsgInvalidPassword   = "Invalid password"
	MsgInvalidScope      = "Invalid scope for token"
	MsgBadCredentials    = "Could not validate credentials"
	MsgInvalidRefresh    = "Invalid refresh token"
	MsgEmailNotFound     = "Email address not found"
	MsgSendFailed        = "Failed to send an email"
	MsgInvalidEmailToken = "Invalid token for email verification"
	MsgResetError        = "Reset password error"
	MsgVerificationError = "Verification error"
	MsgAlreadyConfirmed  = "Your email is already confirmed"
	MsgEmailConfirmed    = "Email confirmed"
	MsgCheckEmail        = "Check your email for confirmation."
	MsgPasswordChanged   = "Password has been changed"
	MsgResetTokenValid   = "Reset token is valid, submit a new password"
	TokenTypeBearer      = "bearer"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignupInput is the validated signup payload.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// AuthService runs the account lifecycle: signup, email verification, login,
// refresh-token rotation, logout and password reset.
//
// Each user has at most one live refresh token, stored on the user row. Login
// replaces it, refresh rotates it with a compare-and-swap, and presenting any
// other refresh token for the user clears it, which ends the session.
type AuthService struct {
	users         UserStore
	tokens        *token.Service
	hasher        PasswordHasher
	mailer        mail.Sender
	cache         *cache.Store
	defaultAvatar string
}

func NewAuthService(users UserStore, tokens *token.Service, hasher PasswordHasher, mailer mail.Sender, c *cache.Store, defaultAvatar string) *AuthService {
	if mailer == nil {
		mailer = mail.LogSender{}
	}
	if c == nil {
		c = cache.New(nil, "", 0)
	}
	return &AuthService{
		users:         users,
		tokens:        tokens,
		hasher:        hasher,
		mailer:        mailer,
		cache:         c,
		defaultAvatar: defaultAvatar,
	}
}

// lookup maps ErrNotFound to a nil user.
func lookup(u *model.User, err error) (*model.User, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// Signup creates an unconfirmed account and sends the verification email.
// A failed delivery is logged and does not fail the signup.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, host string) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	existing, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return nil, internal("signup lookup email", err)
	}
	if existing != nil {
		return nil, conflict(MsgEmailExists)
	}
	existing, err = lookup(s.users.GetByUsername(ctx, username))
	if err != nil {
		return nil, internal("signup lookup username", err)
	}
	if existing != nil {
		return nil, conflict(MsgUsernameExists)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}
	u := &model.User{
		Username: username,
		Email:    email,
		Password: hash,
		Avatar:   s.defaultAvatar,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(MsgEmailExists)
		}
		return nil, internal("create user", err)
	}
	// A lookup with a token for this address may have cached a null user.
	s.cache.InvalidateUser(ctx, email)

	if err := s.sendVerification(ctx, u, host); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("verification email not sent")
	}
	return u, nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *model.User, host string) error {
	tok, _, err := s.tokens.Issue(token.EmailVerify, u.Email)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, mail.Message{
		Kind:     mail.KindVerifyEmail,
		To:       u.Email,
		Username: u.Username,
		Host:     host,
		Token:    tok,
	})
}

// Login authenticates by email or username and starts a new session,
// revoking the previous one.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	u, err := lookup(s.users.GetByEmail(ctx, identifier))
	if err != nil {
		return nil, internal("login lookup email", err)
	}
	if u == nil {
		if u, err = lookup(s.users.GetByUsername(ctx, identifier)); err != nil {
			return nil, internal("login lookup username", err)
		}
	}
	if u == nil {
		return nil, unauthorized(MsgInvalidEmail)
	}
	if !u.Confirmed {
		return nil, unauthorized(MsgEmailNotConfirmed)
	}
	if !s.hasher.Verify(u.Password, password) {
		return nil, unauthorized(MsgInvalidPassword)
	}

	pair, err := s.issuePair(u.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return nil, internal("store refresh token", err)
	}
	return pair, nil
}

func (s *AuthService) issuePair(email string) (*TokenPair, error) {
	access, _, err := s.tokens.Issue(token.Access, email)
	if err != nil {
		return nil, internal("issue access token", err)
	}
	refresh, _, err := s.tokens.Issue(token.Refresh, email)
	if err != nil {
		return nil, internal("issue refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

// Refresh rotates the session. The presented token must be the one stored
// for its subject; anything else revokes the session. Of several concurrent
// refreshes with the same token only one can win the swap, and the losers
// are treated as a replay.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	email, err := s.tokens.Validate(presented, token.Refresh)
	if errors.Is(err, token.ErrInvalidScope) {
		return nil, unauthorized(MsgInvalidScope)
	}
	if err != nil {
		return nil, unauthorized(MsgBadCredentials)
	}

	u, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return nil, internal("refresh lookup", err)
	}
	if u == nil {
		return nil, unauthorized(MsgInvalidRefresh)
	}
	if u.RefreshToken == nil || *u.RefreshToken != presented {
		s.revoke(ctx, u.ID)
		return nil, unauthorized(MsgInvalidRefresh)
	}

	pair, err := s.issuePair(u.Email)
	if err != nil {
		return nil, err
	}
	swapped, err := s.users.SwapRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, internal("rotate refresh token", err)
	}
	if !swapped {
		s.revoke(ctx, u.ID)
		return nil, unauthorized(MsgInvalidRefresh)
	}
	return pair, nil
}

func (s *AuthService) revoke(ctx context.Context, userID uint64) {
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("revoke refresh token failed")
	}
}

// Logout clears the live refresh token. Access tokens already issued stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, u *model.User) error {
	if err := s.users.SetRefreshToken(ctx, u.ID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(MsgBadCredentials)
		}
		return internal("logout", err)
	}
	return nil
}

// RequestPasswordReset emails a short-lived reset link.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, host string) (string, error) {
	u, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return "", internal("reset lookup", err)
	}
	if u == nil {
		return "", notFound(MsgEmailNotFound)
	}
	tok, _, err := s.tokens.Issue(token.PasswordReset, u.Email)
	if err != nil {
		return "", internal("issue reset token", err)
	}
	err = s.mailer.Send(ctx, mail.Message{
		Kind:     mail.KindResetPassword,
		To:       u.Email,
		Username: u.Username,
		Host:     host,
		Token:    tok,
	})
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("reset email not sent")
		return "", newError(KindInternal, MsgSendFailed)
	}
	return MsgCheckEmail, nil
}

// CheckResetToken reports whether a reset link is still usable. It backs the
// GET form of the link sent by email.
func (s *AuthService) CheckResetToken(ctx context.Context, raw string) (string, error) {
	email, err := s.tokens.Validate(raw, token.PasswordReset)
	if err != nil {
		return "", unprocessable(MsgInvalidEmailToken)
	}
	u, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return "", internal("reset lookup", err)
	}
	if u == nil {
		return "", badRequest(MsgResetError)
	}
	return MsgResetTokenValid, nil
}

// ApplyPasswordReset sets a new password for the subject of a reset token.
// The token is not consumed and stays usable until it expires.
func (s *AuthService) ApplyPasswordReset(ctx context.Context, raw, newPassword string) (string, error) {
	email, err := s.tokens.Validate(raw, token.PasswordReset)
	if err != nil {
		return "", unprocessable(MsgInvalidEmailToken)
	}
	u, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return "", internal("reset lookup", err)
	}
	if u == nil {
		return "", badRequest(MsgResetError)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, u.Email, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", badRequest(MsgResetError)
		}
		return "", internal("update password", err)
	}
	s.cache.InvalidateUser(ctx, u.Email)
	return MsgPasswordChanged, nil
}

// RequestEmailConfirmation resends the verification email. The reply for an
// unknown address is the same as for a known one.
func (s *AuthService) RequestEmailConfirmation(ctx context.Context, email, host string) (string, error) {
	u, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return "", internal("confirmation lookup", err)
	}
	if u == nil {
		return MsgCheckEmail, nil
	}
	if u.Confirmed {
		return MsgAlreadyConfirmed, nil
	}
	if err := s.sendVerification(ctx, u, host); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("verification email not sent")
	}
	return MsgCheckEmail, nil
}

// ConfirmEmail marks the subject of a verification token as confirmed.
// Confirming twice is not an error.
func (s *AuthService) ConfirmEmail(ctx context.Context, raw string) (string, error) {
	email, err := s.tokens.Validate(raw, token.EmailVerify)
	if err != nil {
		return "", unprocessable(MsgInvalidEmailToken)
	}
	u, err := lookup(s.users.GetByEmail(ctx, email))
	if err != nil {
		return "", internal("confirm lookup", err)
	}
	if u == nil {
		return "", badRequest(MsgVerificationError)
	}
	if u.Confirmed {
		return MsgAlreadyConfirmed, nil
	}
	if err := s.users.ConfirmEmail(ctx, u.Email); err != nil {
		return "", internal("confirm email", err)
	}
	s.cache.InvalidateUser(ctx, u.Email)
	return MsgEmailConfirmed, nil
}

// CurrentUser resolves the owner of an access token, reading through the
// user cache.
func (s *AuthService) CurrentUser(ctx context.Context, raw string) (*model.User, error) {
	email, err := s.tokens.Validate(raw, token.Access)
	if err != nil {
		return nil, unauthorized(MsgBadCredentials)
	}
	u, err := cache.ReadThrough(ctx, s.cache, s.cache.UserKey(email), func(ctx context.Context) (*model.User, error) {
		return lookup(s.users.GetByEmail(ctx, email))
	})
	if err != nil {
		return nil, internal("load current user", err)
	}
	if u == nil {
		return nil, unauthorized(MsgBadCredentials)
	}
	return u, nil
}
