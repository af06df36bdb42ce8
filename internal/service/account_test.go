package service

import (
	"context"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository/repotest"
	"github.com/iliyamo/account-service/internal/storage"
)

func newAccountService(repo *repotest.Accounts, up storage.Uploader, p ProviderVerifier, policy Policy) *AccountService {
	return NewAccountService(AccountDeps{
		Accounts: repo,
		Hasher:   testHasher,
		Uploader: up,
		Provider: p,
		Policy:   policy,
		Now:      func() time.Time { return clock },
	})
}

func TestRegister(t *testing.T) {
	repo := repotest.NewAccounts()
	svc := newAccountService(repo, nil, nil, DefaultPolicy())
	ctx := context.Background()

	acc, err := svc.Register(ctx, RegisterInput{
		FirstName: "Ravi", LastName: "Kumar", Email: "ravi@example.com",
		Contact: 9876543210, Password: "plain-text",
	})
	require.NoError(t, err)
	assert.False(t, acc.ID.IsZero())
	assert.Equal(t, model.RoleOperator, acc.Role)
	assert.True(t, acc.Active)
	assert.Equal(t, clock, acc.CreatedAt)

	stored := repo.Get(acc.ID)
	assert.NotEqual(t, "plain-text", stored.PasswordHash)
	assert.True(t, testHasher.Verify("plain-text", stored.PasswordHash))
	assert.False(t, testHasher.Verify("plain-text!", stored.PasswordHash))

	t.Run("duplicate contact", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Contact: 9876543210, Password: "x"})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("invalid fields", func(t *testing.T) {
		inserts := repo.Calls["Insert"]
		_, err := svc.Register(ctx, RegisterInput{FirstName: " ", Contact: 12345, Password: "x"})
		require.ErrorIs(t, err, ErrInvalidInput)
		var se *Error
		require.ErrorAs(t, err, &se)
		fields := map[string]bool{}
		for _, f := range se.Fields {
			fields[f.Field] = true
		}
		assert.True(t, fields["name.fName"])
		assert.True(t, fields["name.lName"])
		assert.True(t, fields["contact"])
		assert.Equal(t, inserts, repo.Calls["Insert"])
	})

	t.Run("overlong password", func(t *testing.T) {
		inserts := repo.Calls["Insert"]
		_, err := svc.Register(ctx, RegisterInput{
			FirstName: "Long", LastName: "Pass", Contact: 9234567890, Password: strings.Repeat("p", 80),
		})
		require.ErrorIs(t, err, ErrInvalidInput)
		var se *Error
		require.ErrorAs(t, err, &se)
		require.Len(t, se.Fields, 1)
		assert.Equal(t, "password", se.Fields[0].Field)
		assert.Equal(t, inserts, repo.Calls["Insert"])
	})

	t.Run("empty password gets a random one", func(t *testing.T) {
		acc, err := svc.Register(ctx, RegisterInput{FirstName: "N", LastName: "P", Contact: 9123456789})
		require.NoError(t, err)
		assert.NotEmpty(t, repo.Get(acc.ID).PasswordHash)
	})
}

func TestCreateWithDocuments(t *testing.T) {
	repo := repotest.NewAccounts()
	up := &memUploader{}
	svc := newAccountService(repo, up, nil, DefaultPolicy())
	ctx := context.Background()

	acc, err := svc.Create(ctx, CreateInput{
		Account: model.Account{
			Name:    model.Name{First: "Meera", Last: "Iyer"},
			Contact: 9811122233,
			Role:    model.RoleAdmin,
			Active:  true,
		},
		Password: "given",
		Files: map[string]*multipart.FileHeader{
			model.DocPanCard:   {Filename: "pan.pdf"},
			model.DocAgreement: {Filename: "agreement.pdf"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{model.DocPanCard, model.DocAgreement}, up.saved)

	stored := repo.Get(acc.ID)
	assert.Equal(t, "https://files.test/panCard", stored.PanCard)
	assert.Equal(t, "https://files.test/agreement", stored.Agreement)
	assert.Equal(t, model.RoleAdmin, stored.Role)
	assert.True(t, testHasher.Verify("given", stored.PasswordHash))

	t.Run("rejected file", func(t *testing.T) {
		up.err = storage.ErrUnsupportedType
		defer func() { up.err = nil }()
		_, err := svc.Create(ctx, CreateInput{
			Account: model.Account{Name: model.Name{First: "X", Last: "Y"}, Contact: 9811122244},
			Files:   map[string]*multipart.FileHeader{model.DocUserProfile: {Filename: "a.exe"}},
		})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duplicate contact removes stored files", func(t *testing.T) {
		up.removed = nil
		_, err := svc.Create(ctx, CreateInput{
			Account: model.Account{Name: model.Name{First: "Dup", Last: "Licate"}, Contact: 9811122233},
			Files:   map[string]*multipart.FileHeader{model.DocSalarySlip: {Filename: "slip.pdf"}},
		})
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.EqualError(t, err, msgDuplicateContact)
		assert.Equal(t, []string{"https://files.test/salarySlip"}, up.removed)
	})

	t.Run("address required by policy", func(t *testing.T) {
		strict := newAccountService(repo, up, nil, Policy{RequireAddress: true})
		_, err := strict.Create(ctx, CreateInput{
			Account: model.Account{Name: model.Name{First: "X", Last: "Y"}, Contact: 9811122255},
		})
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestUpdate(t *testing.T) {
	acc := seedAccount(t, "pw")
	repo := repotest.NewAccounts(acc)
	up := &memUploader{}
	svc := newAccountService(repo, up, nil, DefaultPolicy())
	ctx := context.Background()

	designation := "Supervisor"
	err := svc.Update(ctx, acc.ID, model.AccountPatch{Designation: &designation},
		map[string]*multipart.FileHeader{model.DocUserProfile: {Filename: "me.png"}})
	require.NoError(t, err)

	stored := repo.Get(acc.ID)
	assert.Equal(t, "Supervisor", stored.Designation)
	assert.Equal(t, "https://files.test/userProfile", stored.UserProfile)

	err = svc.Update(ctx, primitive.NewObjectID(), model.AccountPatch{Designation: &designation}, nil)
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, msgNoUserToUpdate)
	assert.Empty(t, up.removed)

	err = svc.Update(ctx, primitive.NewObjectID(), model.AccountPatch{Designation: &designation},
		map[string]*multipart.FileHeader{model.DocBankStatement: {Filename: "bank.pdf"}})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"https://files.test/bankStatement"}, up.removed)
}

func TestDeactivate(t *testing.T) {
	acc := seedAccount(t, "pw")
	repo := repotest.NewAccounts(acc)
	svc := newAccountService(repo, nil, nil, DefaultPolicy())
	ctx := context.Background()

	require.NoError(t, svc.Deactivate(ctx, acc.ID))
	require.NoError(t, svc.Deactivate(ctx, acc.ID))
	assert.False(t, repo.Get(acc.ID).Active)
	require.NoError(t, svc.Deactivate(ctx, primitive.NewObjectID()))

	repo.Fail = errStoreDown
	require.ErrorIs(t, svc.Deactivate(ctx, acc.ID), errStoreDown)
}

func TestList(t *testing.T) {
	branch := primitive.NewObjectID()
	active := seedAccount(t, "pw")
	active.Branches = []primitive.ObjectID{branch}
	inactive := seedAccount(t, "pw")
	inactive.ID = primitive.NewObjectID()
	inactive.Contact = 9000000002
	inactive.Active = false

	svc := newAccountService(repotest.NewAccounts(active, inactive), nil, nil, DefaultPolicy())
	ctx := context.Background()
	str := func(s string) *string { return &s }

	cases := []struct {
		name   string
		in     ListInput
		expect []primitive.ObjectID
	}{
		{"default is active", ListInput{}, []primitive.ObjectID{active.ID}},
		{"inactive", ListInput{Status: str(StatusInactive)}, []primitive.ObjectID{inactive.ID}},
		{"no status filter", ListInput{Status: str("")}, []primitive.ObjectID{active.ID, inactive.ID}},
		{"branch", ListInput{Status: str(""), Branch: &branch}, []primitive.ObjectID{active.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := svc.List(ctx, tc.in)
			require.NoError(t, err)
			var ids []primitive.ObjectID
			for _, s := range out {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tc.expect, ids)
		})
	}

	_, err := svc.List(ctx, ListInput{Status: str("Deleted")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

type stubProvider struct {
	profile ProviderProfile
	err     error
}

func (s stubProvider) Verify(context.Context, string) (ProviderProfile, error) {
	return s.profile, s.err
}

func TestVerifyWithProvider(t *testing.T) {
	acc := seedAccount(t, "pw")
	repo := repotest.NewAccounts(acc)
	ctx := context.Background()

	svc := newAccountService(repo, nil, stubProvider{profile: ProviderProfile{Email: acc.Email}}, DefaultPolicy())
	got, err := svc.VerifyWithProvider(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	svc = newAccountService(repo, nil, stubProvider{profile: ProviderProfile{Email: "other@example.com"}}, DefaultPolicy())
	_, err = svc.VerifyWithProvider(ctx, "token")
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, msgNoSuchUser)

	svc = newAccountService(repo, nil, stubProvider{err: ErrProviderToken}, DefaultPolicy())
	_, err = svc.VerifyWithProvider(ctx, "token")
	require.ErrorIs(t, err, ErrUnauthorized)

	svc = newAccountService(repo, nil, stubProvider{err: errStoreDown}, DefaultPolicy())
	_, err = svc.VerifyWithProvider(ctx, "token")
	require.ErrorIs(t, err, errStoreDown)
	assert.False(t, IsClientError(err))
}
