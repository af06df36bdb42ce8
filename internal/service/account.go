package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/storage"
	"github.com/iliyamo/account-service/internal/utils"
)

const (
	msgDuplicateContact = "Contact number already registered."
	msgNoUserToUpdate   = "No user found to update"
	msgBadStatus        = "status must be one of [Active Inactive]"
)

// List status values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// AccountDeps are the collaborators of AccountService.
type AccountDeps struct {
	Accounts repository.AccountRepository
	Hasher   utils.PasswordHasher
	Uploader storage.Uploader
	Provider ProviderVerifier
	Policy   Policy
	Now      func() time.Time
	Log      *zap.Logger
}

// AccountService creates, updates, deactivates and lists accounts.
// Passwords are hashed here and nowhere else.
type AccountService struct {
	accounts repository.AccountRepository
	hasher   utils.PasswordHasher
	uploader storage.Uploader
	provider ProviderVerifier
	policy   Policy
	now      func() time.Time
	log      *zap.Logger
}

func NewAccountService(d AccountDeps) *AccountService {
	s := &AccountService{
		accounts: d.Accounts,
		hasher:   d.Hasher,
		uploader: d.Uploader,
		provider: d.Provider,
		policy:   d.Policy,
		now:      d.Now,
		log:      d.Log,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// RegisterInput is a self-service registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Contact   int64
	Password  string
}

// Register creates an active operator account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	acc := model.Account{
		Name:    model.Name{First: strings.TrimSpace(in.FirstName), Last: strings.TrimSpace(in.LastName)},
		Email:   strings.TrimSpace(in.Email),
		Contact: in.Contact,
		Role:    model.RoleOperator,
		Active:  true,
	}
	if err := s.insert(ctx, &acc, in.Password, nil, false); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// CreateInput is an administrator-created account.  Files maps document
// field names to uploaded parts.
type CreateInput struct {
	Account  model.Account
	Password string
	Files    map[string]*multipart.FileHeader
}

// Create stores a new account.  An empty password is replaced by a random
// one and an empty role defaults to operator.
func (s *AccountService) Create(ctx context.Context, in CreateInput) (model.Account, error) {
	acc := in.Account
	if acc.Role == "" {
		acc.Role = model.RoleOperator
	}
	if err := s.insert(ctx, &acc, in.Password, in.Files, s.policy.RequireAddress); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

func (s *AccountService) insert(ctx context.Context, acc *model.Account, password string, files map[string]*multipart.FileHeader, requireAddress bool) error {
	if password == "" {
		p, err := utils.RandomPassword()
		if err != nil {
			return internal("random_password", err)
		}
		password = p
	}
	hash, err := hashPassword(s.hasher, password, "password")
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	acc.ID = primitive.NewObjectID()
	acc.CreatedAt = s.now().UTC()
	acc.OTP = nil

	if fields := acc.Validate(requireAddress); len(fields) > 0 {
		return invalidFields(fields)
	}
	urls, err := s.upload(ctx, files)
	if err != nil {
		return err
	}
	for field, url := range urls {
		acc.SetDocument(field, url)
	}

	if err := s.accounts.Insert(ctx, acc); err != nil {
		s.discard(ctx, urls)
		if errors.Is(err, repository.ErrDuplicateContact) {
			return newError(ErrInvalidInput, msgDuplicateContact)
		}
		return internal("insert_account", err)
	}
	s.log.Info("account created", zap.String("account_id", acc.ID.Hex()), zap.String("role", string(acc.Role)))
	return nil
}

// upload stores each file and returns the URL per document field.
func (s *AccountService) upload(ctx context.Context, files map[string]*multipart.FileHeader) (map[string]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.uploader == nil {
		return nil, newError(ErrInvalidInput, "file uploads are not enabled")
	}
	urls := make(map[string]string, len(files))
	for _, field := range model.DocumentFields {
		fh, ok := files[field]
		if !ok || fh == nil {
			continue
		}
		url, err := s.uploader.Save(ctx, field, fh)
		if err != nil {
			s.discard(ctx, urls)
			if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
				return nil, &Error{Kind: ErrInvalidInput, Message: err.Error(),
					Fields: []model.FieldError{{Field: field, Message: err.Error()}}}
			}
			return nil, internal("upload", err)
		}
		urls[field] = url
	}
	return urls, nil
}

// discard removes files stored for a write the store then rejected.
// Failures are logged; the caller's error is what the client sees.
func (s *AccountService) discard(ctx context.Context, urls map[string]string) {
	for field, url := range urls {
		if err := s.uploader.Remove(ctx, url); err != nil {
			s.log.Warn("remove orphaned upload", zap.String("field", field), zap.String("url", url), zap.Error(err))
		}
	}
}

// Update applies a partial update.  It fails with ErrNotFound unless
// exactly one account has the id.
func (s *AccountService) Update(ctx context.Context, id primitive.ObjectID, patch model.AccountPatch, files map[string]*multipart.FileHeader) error {
	urls, err := s.upload(ctx, files)
	if err != nil {
		return err
	}
	if len(urls) > 0 {
		if patch.Documents == nil {
			patch.Documents = map[string]string{}
		}
		for k, v := range urls {
			patch.Documents[k] = v
		}
	}
	if err := s.accounts.Update(ctx, id, patch); err != nil {
		s.discard(ctx, urls)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, msgNoUserToUpdate)
		}
		return internal("update_account", err)
	}
	s.log.Info("account updated", zap.String("account_id", id.Hex()))
	return nil
}

// Deactivate soft-deletes an account.  Repeating it, or naming an unknown
// id, is not an error.
func (s *AccountService) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	if err := s.accounts.Deactivate(ctx, id); err != nil {
		return internal("deactivate_account", err)
	}
	s.log.Info("account deactivated", zap.String("account_id", id.Hex()))
	return nil
}

// ListInput filters a listing.  A nil Status means Active; an empty one
// disables the status filter.
type ListInput struct {
	Status *string
	Branch *primitive.ObjectID
}

func (s *AccountService) List(ctx context.Context, in ListInput) ([]model.AccountSummary, error) {
	var f repository.ListFilter
	status := StatusActive
	if in.Status != nil {
		status = *in.Status
	}
	switch status {
	case StatusActive:
		active := true
		f.Active = &active
	case StatusInactive:
		active := false
		f.Active = &active
	case "":
	default:
		return nil, newError(ErrInvalidInput, msgBadStatus)
	}
	f.Branch = in.Branch

	out, err := s.accounts.List(ctx, f)
	if err != nil {
		return nil, internal("list_accounts", err)
	}
	return out, nil
}

// VerifyWithProvider checks a third-party ID token and returns the account
// registered under its email.
func (s *AccountService) VerifyWithProvider(ctx context.Context, idToken string) (model.Account, error) {
	if s.provider == nil {
		return model.Account{}, newError(ErrInvalidInput, "provider sign-in is not configured")
	}
	profile, err := s.provider.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrProviderToken) || errors.Is(err, ErrProviderUnverified) {
			s.log.Info("provider token rejected", zap.Error(err))
			return model.Account{}, newError(ErrUnauthorized, "Invalid provider token.")
		}
		return model.Account{}, internal("verify_provider", err)
	}
	acc, err := s.accounts.FindOne(ctx, repository.ByEmail(profile.Email).Active(true))
	if err != nil {
		if isMiss(err) {
			return model.Account{}, newError(ErrNotFound, msgNoSuchUser)
		}
		return model.Account{}, internal("verify_provider", err)
	}
	return acc, nil
}
