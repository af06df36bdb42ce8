// Package repotest provides in-memory repositories for tests.  They follow
// the matching rules of the Mongo and MySQL stores: FindOne reports
// ErrNotFound and ErrAmbiguous, Update and password writes require exactly
// one match and Deactivate ignores unknown ids.
package repotest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
)

var (
	_ repository.AccountRepository = (*Accounts)(nil)
	_ repository.AreaRepository    = (*Areas)(nil)
)

// Accounts is an in-memory AccountRepository.
type Accounts struct {
	mu   sync.Mutex
	rows []*model.Account

	// Fail, when set, is returned by every method.
	Fail error
	// Calls counts invocations per method name.
	Calls map[string]int
}

func NewAccounts(accs ...model.Account) *Accounts {
	m := &Accounts{Calls: map[string]int{}}
	for i := range accs {
		a := accs[i]
		m.rows = append(m.rows, &a)
	}
	return m
}

func (m *Accounts) hit(op string) error {
	m.Calls[op]++
	return m.Fail
}

func (m *Accounts) match(q repository.AccountQuery) []*model.Account {
	var out []*model.Account
	for _, a := range m.rows {
		if q.ID != nil && a.ID != *q.ID {
			continue
		}
		if q.Contact != nil && a.Contact != *q.Contact {
			continue
		}
		if q.Email != "" && a.Email != q.Email {
			continue
		}
		if q.ActiveOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (m *Accounts) byID(id primitive.ObjectID) *model.Account {
	for _, a := range m.rows {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *Accounts) Insert(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Insert"); err != nil {
		return err
	}
	for _, r := range m.rows {
		if r.Contact == a.Contact {
			return repository.ErrDuplicateContact
		}
	}
	cp := *a
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *Accounts) FindOne(_ context.Context, q repository.AccountQuery) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("FindOne"); err != nil {
		return model.Account{}, err
	}
	found := m.match(q)
	switch len(found) {
	case 0:
		return model.Account{}, repository.ErrNotFound
	case 1:
		cp := *found[0]
		if cp.OTP != nil {
			otp := *cp.OTP
			cp.OTP = &otp
		}
		return cp, nil
	}
	return model.Account{}, repository.ErrAmbiguous
}

func (m *Accounts) Update(_ context.Context, id primitive.ObjectID, p model.AccountPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Update"); err != nil {
		return err
	}
	a := m.byID(id)
	if a == nil {
		return repository.ErrNotFound
	}
	if p.Company != nil {
		a.Company = p.Company
	}
	if p.UserTypeID != nil {
		a.UserTypeID = p.UserTypeID
	}
	if p.ReportingManager != nil {
		a.ReportingManager = p.ReportingManager
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.DOB != nil {
		a.DOB = p.DOB
	}
	if p.Address != nil {
		a.Address = *p.Address
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Designation != nil {
		a.Designation = *p.Designation
	}
	if p.ShiftDuty != nil {
		a.ShiftDuty = p.ShiftDuty
	}
	if p.MaxBalance != nil {
		a.MaxBalance = *p.MaxBalance
	}
	if p.AcceptsPaymentType != nil {
		a.AcceptsPaymentType = p.AcceptsPaymentType
	}
	for field, url := range p.Documents {
		a.SetDocument(field, url)
	}
	return nil
}

func (m *Accounts) SetOTP(_ context.Context, id primitive.ObjectID, otp model.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("SetOTP"); err != nil {
		return err
	}
	a := m.byID(id)
	if a == nil {
		return repository.ErrNotFound
	}
	a.OTP = &otp
	return nil
}

func (m *Accounts) ClearOTP(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ClearOTP"); err != nil {
		return err
	}
	a := m.byID(id)
	if a == nil {
		return repository.ErrNotFound
	}
	a.OTP = nil
	return nil
}

func (m *Accounts) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, clearOTP bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdatePassword"); err != nil {
		return err
	}
	a := m.byID(id)
	if a == nil {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	if clearOTP {
		a.OTP = nil
	}
	return nil
}

func (m *Accounts) Deactivate(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Deactivate"); err != nil {
		return err
	}
	if a := m.byID(id); a != nil {
		a.Active = false
	}
	return nil
}

func (m *Accounts) List(_ context.Context, f repository.ListFilter) ([]model.AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("List"); err != nil {
		return nil, err
	}
	out := []model.AccountSummary{}
	for _, a := range m.rows {
		if f.Active != nil && a.Active != *f.Active {
			continue
		}
		if f.Branch != nil && !containsID(a.Branches, *f.Branch) {
			continue
		}
		out = append(out, model.AccountSummary{ID: a.ID, Name: a.Name, Contact: a.Contact})
	}
	return out, nil
}

// Get returns a copy of the stored account with id.  It panics when the
// account does not exist.
func (m *Accounts) Get(id primitive.ObjectID) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID(id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}


// Areas is an in-memory AreaRepository.
type Areas struct {
	AreaRows map[primitive.ObjectID]model.Area
	Cities   map[primitive.ObjectID]model.City
	Fail     error
}

func NewAreas() *Areas {
	return &Areas{AreaRows: map[primitive.ObjectID]model.Area{}, Cities: map[primitive.ObjectID]model.City{}}
}

func (m *Areas) Create(_ context.Context, a *model.Area) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.AreaRows[a.ID] = *a
	return nil
}

func (m *Areas) Update(_ context.Context, id primitive.ObjectID, p model.AreaPatch) error {
	if m.Fail != nil {
		return m.Fail
	}
	a, ok := m.AreaRows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.Pincode != nil {
		a.Pincode = *p.Pincode
	}
	m.AreaRows[id] = a
	return nil
}

func (m *Areas) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.AreaRows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.AreaRows, id)
	return nil
}

func (m *Areas) Get(_ context.Context, id primitive.ObjectID) (model.Area, error) {
	a, ok := m.AreaRows[id]
	if !ok {
		return model.Area{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *Areas) CityByPincode(_ context.Context, pincode int) (model.City, error) {
	if m.Fail != nil {
		return model.City{}, m.Fail
	}
	for _, a := range m.AreaRows {
		if a.Pincode == pincode {
			if c, ok := m.Cities[a.City]; ok {
				return c, nil
			}
		}
	}
	return model.City{}, repository.ErrNotFound
}

