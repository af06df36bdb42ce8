package utils

import (
	"crypto/rand"
	"math/big"
)

// OTPLength is the number of digits in a one-time password.
const OTPLength = 6

var ten = big.NewInt(10)

// GenerateOTP returns a string of OTPLength decimal digits, each drawn
// uniformly from 0-9. Leading zeros are kept.
func GenerateOTP() (string, error) {
	buf := make([]byte, OTPLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// OTPGenerator produces one-time passwords. The expiry is owned by the
// caller.
type OTPGenerator interface {
	Generate() (string, error)
}

// OTPGeneratorFunc adapts a plain function to OTPGenerator.
type OTPGeneratorFunc func() (string, error)

func (f OTPGeneratorFunc) Generate() (string, error) { return f() }

// DefaultOTPGenerator draws codes from crypto/rand.
var DefaultOTPGenerator OTPGenerator = OTPGeneratorFunc(GenerateOTP)
