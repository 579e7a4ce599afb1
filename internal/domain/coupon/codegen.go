package coupon

import (
	"crypto/rand"
	"math/big"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	PrefixEarlyBird = "EARLYBIRD"
	PrefixReferral  = "REFERRAL"

	codeLength         = 8
	ReferralCodeLength = 6
)

// RandomCode returns n characters from A-Z0-9.
func RandomCode(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// GenerateCode returns PREFIX-XXXXXXXX.
func GenerateCode(prefix string) (string, error) {
	suffix, err := RandomCode(codeLength)
	if err != nil {
		return "", err
	}
	return prefix + "-" + suffix, nil
}
