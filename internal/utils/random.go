package utils

import (
	"crypto/rand"
	"math/big"
)

// Uppercase letters and digits without 0/O/1/I/L.
const referralAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, err := rand.Int(rand.Reader, charsetLength)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		result[i] = charset[num.Int64()]
	}

	return string(result)
}

func GenerateReferralCode() string {
	return generateRandom(ReferralCodeLength, referralAlphabet)
}
