package service

import (
	"context"
	"errors"
	"mime/multipart"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/utils"
)

var testHasher = utils.NewBcryptHasher(bcrypt.MinCost)

// recordingDispatcher keeps dispatched events and can be told to fail.
type recordingDispatcher struct {
	events []queue.OTPIssuedEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev queue.OTPIssuedEvent) error {
	d.events = append(d.events, ev)
	return d.err
}

// memUploader returns a predictable URL per field.
type memUploader struct {
	err     error
	saved   []string
	removed []string
}

func (u *memUploader) Remove(_ context.Context, url string) error {
	u.removed = append(u.removed, url)
	return nil
}

func (u *memUploader) Save(_ context.Context, field string, _ *multipart.FileHeader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.saved = append(u.saved, field)
	return "https://files.test/" + field, nil
}

var errStoreDown = errors.New("store down")
