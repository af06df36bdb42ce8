package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/account-service/internal/metrics"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// Client-facing messages of the authentication flow.
const (
	msgInvalidLogin     = "Invalid Username or Password!"
	msgNoSuchUser       = "No such user found"
	msgInvalidUserOTP   = "Invalid user or OTP."
	msgInvalidOTP       = "Invalid or expired otp."
	msgInvalidUser      = "Invalid user."
	msgUserNotExist     = "User doesn't exist"
	msgPasswordMismatch = "password doesn't match"
)

// DefaultOTPTTL is how long an issued OTP stays valid.
const DefaultOTPTTL = 10 * time.Minute

var numeric = regexp.MustCompile(`^\d+$`)

// Policy holds the deployment switches of the authentication flow.
type Policy struct {
	LoginRequiresActive  bool
	ForgotRequiresActive bool
	VerifyRequiresActive bool
	ConsumeOTPOnVerify   bool
	ConsumeOTPOnSet      bool
	RequireAddress       bool
}

// DefaultPolicy excludes inactive accounts from login and otherwise keeps
// the reset flow open to any account with the contact number.
func DefaultPolicy() Policy {
	return Policy{LoginRequiresActive: true}
}

// TokenSigner issues access tokens.
type TokenSigner interface {
	Sign(subject, role string) (utils.AccessToken, error)
}

// OTPDispatcher hands an issued OTP to whatever delivers it.
type OTPDispatcher interface {
	Dispatch(ctx context.Context, ev queue.OTPIssuedEvent) error
}

// AuthDeps are the collaborators of AuthFlow.  Nil optional fields fall
// back to defaults: crypto/rand OTPs, no dispatch, time.Now, a no-op
// logger and no metrics.
type AuthDeps struct {
	Accounts   repository.AccountRepository
	Hasher     utils.PasswordHasher
	Tokens     TokenSigner
	OTPs       utils.OTPGenerator
	Dispatcher OTPDispatcher
	Policy     Policy
	OTPTTL     time.Duration
	Now        func() time.Time
	Log        *zap.Logger
	Metrics    *metrics.Metrics
}

// AuthFlow implements login and the OTP password reset.
type AuthFlow struct {
	accounts   repository.AccountRepository
	hasher     utils.PasswordHasher
	tokens     TokenSigner
	otps       utils.OTPGenerator
	dispatcher OTPDispatcher
	policy     Policy
	otpTTL     time.Duration
	now        func() time.Time
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewAuthFlow(d AuthDeps) *AuthFlow {
	f := &AuthFlow{
		accounts:   d.Accounts,
		hasher:     d.Hasher,
		tokens:     d.Tokens,
		otps:       d.OTPs,
		dispatcher: d.Dispatcher,
		policy:     d.Policy,
		otpTTL:     d.OTPTTL,
		now:        d.Now,
		log:        d.Log,
		metrics:    d.Metrics,
	}
	if f.otps == nil {
		f.otps = utils.DefaultOTPGenerator
	}
	if f.otpTTL <= 0 {
		f.otpTTL = DefaultOTPTTL
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	return f
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Account     model.Account
	AccessToken utils.AccessToken
	Username    string
	Role        model.Role
}

// Login authenticates by contact number (all-digit identifier) or email.
// Unknown identifiers, ambiguous matches and wrong passwords all yield
// ErrInvalidCredentials.
func (f *AuthFlow) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	var q repository.AccountQuery
	if numeric.MatchString(username) {
		contact, err := strconv.ParseInt(username, 10, 64)
		if err != nil {
			f.metrics.AuthAttempt("login", metrics.OutcomeInvalidCredentials)
			return LoginResult{}, newError(ErrInvalidCredentials, msgInvalidLogin)
		}
		q = repository.ByContact(contact)
	} else {
		q = repository.ByEmail(username)
	}

	acc, err := f.accounts.FindOne(ctx, q.Active(f.policy.LoginRequiresActive))
	if err != nil {
		if isMiss(err) {
			f.metrics.AuthAttempt("login", metrics.OutcomeInvalidCredentials)
			return LoginResult{}, newError(ErrInvalidCredentials, msgInvalidLogin)
		}
		f.metrics.AuthAttempt("login", metrics.OutcomeError)
		return LoginResult{}, internal("login", err)
	}
	if !f.hasher.Verify(password, acc.PasswordHash) {
		f.metrics.AuthAttempt("login", metrics.OutcomeInvalidCredentials)
		return LoginResult{}, newError(ErrInvalidCredentials, msgInvalidLogin)
	}

	tok, err := f.tokens.Sign(acc.ID.Hex(), string(acc.Role))
	if err != nil {
		f.metrics.AuthAttempt("login", metrics.OutcomeError)
		return LoginResult{}, internal("sign_token", err)
	}
	f.metrics.AuthAttempt("login", metrics.OutcomeSuccess)
	f.log.Info("login succeeded", zap.String("account_id", acc.ID.Hex()), zap.String("role", string(acc.Role)))
	return LoginResult{Account: acc, AccessToken: tok, Username: username, Role: acc.Role}, nil
}

// ForgotPassword issues a fresh OTP for the account with contact, stores
// it with its expiry and hands it to the dispatcher.  A dispatch failure
// is logged; the OTP stays valid and the call succeeds.
func (f *AuthFlow) ForgotPassword(ctx context.Context, contact int64) error {
	acc, err := f.accounts.FindOne(ctx, repository.ByContact(contact).Active(f.policy.ForgotRequiresActive))
	if err != nil {
		if isMiss(err) {
			f.metrics.AuthAttempt("forgot_password", metrics.OutcomeNotFound)
			return newError(ErrNotFound, msgNoSuchUser)
		}
		return internal("forgot_password", err)
	}

	code, err := f.otps.Generate()
	if err != nil {
		return internal("generate_otp", err)
	}
	now := f.now()
	otp := model.OTP{Code: code, ExpiresAt: now.Add(f.otpTTL)}
	if err := f.accounts.SetOTP(ctx, acc.ID, otp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, msgNoSuchUser)
		}
		return internal("store_otp", err)
	}
	f.metrics.OTPIssuedInc()
	f.metrics.AuthAttempt("forgot_password", metrics.OutcomeSuccess)

	if f.dispatcher != nil {
		ev := queue.OTPIssuedEvent{
			AccountID: acc.ID.Hex(),
			Contact:   acc.Contact,
			Email:     acc.Email,
			OTP:       code,
			ExpiresAt: otp.ExpiresAt.UTC(),
			IssuedAt:  now.UTC(),
		}
		if err := f.dispatcher.Dispatch(ctx, ev); err != nil {
			f.metrics.OTPDispatched(false)
			f.log.Warn("otp dispatch failed", zap.String("account_id", acc.ID.Hex()), zap.Error(err))
		} else {
			f.metrics.OTPDispatched(true)
		}
	}
	return nil
}

// VerifyOTP checks code against the stored OTP.  The OTP is only removed
// when the policy asks for consume-on-verify.
func (f *AuthFlow) VerifyOTP(ctx context.Context, contact int64, code string) error {
	acc, err := f.accounts.FindOne(ctx, repository.ByContact(contact).Active(f.policy.VerifyRequiresActive))
	if err != nil {
		if isMiss(err) {
			f.metrics.AuthAttempt("verify_otp", metrics.OutcomeInvalidOTP)
			return newError(ErrInvalidOTP, msgInvalidUserOTP)
		}
		return internal("verify_otp", err)
	}
	if !acc.OTP.ValidAt(f.now()) {
		f.metrics.AuthAttempt("verify_otp", metrics.OutcomeInvalidOTP)
		return newError(ErrInvalidOTP, msgInvalidUserOTP)
	}
	if !codeMatches(acc.OTP, code) {
		f.metrics.AuthAttempt("verify_otp", metrics.OutcomeInvalidOTP)
		return newError(ErrInvalidOTP, msgInvalidOTP)
	}
	if f.policy.ConsumeOTPOnVerify {
		if err := f.accounts.ClearOTP(ctx, acc.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return internal("consume_otp", err)
		}
	}
	f.metrics.AuthAttempt("verify_otp", metrics.OutcomeSuccess)
	return nil
}

// SetPassword replaces the password of an active account after checking
// the OTP again.  Unless the policy consumes OTPs on set, the same OTP
// keeps working until it expires or is replaced.
func (f *AuthFlow) SetPassword(ctx context.Context, contact int64, code, newPassword string) error {
	acc, err := f.accounts.FindOne(ctx, repository.ByContact(contact).Active(true))
	if err != nil {
		if isMiss(err) {
			f.metrics.AuthAttempt("set_password", metrics.OutcomeNotFound)
			return newError(ErrNotFound, msgInvalidUser)
		}
		return internal("set_password", err)
	}
	if !acc.OTP.ValidAt(f.now()) || !codeMatches(acc.OTP, code) {
		f.metrics.AuthAttempt("set_password", metrics.OutcomeInvalidOTP)
		return newError(ErrInvalidOTP, msgInvalidOTP)
	}
	hash, err := hashPassword(f.hasher, newPassword, "password")
	if err != nil {
		return err
	}
	if err := f.accounts.UpdatePassword(ctx, acc.ID, hash, f.policy.ConsumeOTPOnSet); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, msgInvalidUser)
		}
		return internal("set_password", err)
	}
	f.metrics.AuthAttempt("set_password", metrics.OutcomeSuccess)
	f.log.Info("password reset", zap.String("account_id", acc.ID.Hex()))
	return nil
}

// ChangePassword replaces the password of an active account when the
// current password matches.
func (f *AuthFlow) ChangePassword(ctx context.Context, contact int64, oldPassword, newPassword string) error {
	acc, err := f.accounts.FindOne(ctx, repository.ByContact(contact).Active(true))
	if err != nil {
		if isMiss(err) {
			f.metrics.AuthAttempt("change_password", metrics.OutcomeNotFound)
			return newError(ErrNotFound, msgUserNotExist)
		}
		return internal("change_password", err)
	}
	if !f.hasher.Verify(oldPassword, acc.PasswordHash) {
		f.metrics.AuthAttempt("change_password", metrics.OutcomeInvalidCredentials)
		return newError(ErrInvalidCredentials, msgPasswordMismatch)
	}
	hash, err := hashPassword(f.hasher, newPassword, "newPassword")
	if err != nil {
		return err
	}
	if err := f.accounts.UpdatePassword(ctx, acc.ID, hash, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, msgUserNotExist)
		}
		return internal("change_password", err)
	}
	f.metrics.AuthAttempt("change_password", metrics.OutcomeSuccess)
	return nil
}

// hashPassword reports an overlong password as a field error on field
// rather than an internal failure.
func hashPassword(h utils.PasswordHasher, plain, field string) (string, error) {
	hash, err := h.Hash(plain)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", invalidFields([]model.FieldError{{
			Field:   field,
			Message: field + " must be at most " + strconv.Itoa(utils.MaxPasswordBytes) + " bytes",
		}})
	}
	if err != nil {
		return "", internal("hash_password", err)
	}
	return hash, nil
}

func codeMatches(otp *model.OTP, code string) bool {
	return subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) == 1
}

// isMiss reports whether a lookup failed for lack of exactly one match.
func isMiss(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAmbiguous)
}
