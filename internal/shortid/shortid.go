// Package shortid generates the public tokens used in `/u/{id}` links.
package shortid

import (
	"crypto/rand"
	"math/big"
)

// Length is the number of symbols in a generated short id.
const Length = 6

const symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var symbolsCount = big.NewInt(int64(len(symbols)))

// Generate returns a random short id of Length alphanumeric symbols.
// Uniqueness is not guaranteed here, the store rejects collisions.
func Generate() string {
	return GenerateN(Length)
}

// GenerateN returns a random alphanumeric string of the given length.
func GenerateN(length int) string {
	result := make([]byte, length)
	for i := range result {
		randomIndex, err := rand.Int(rand.Reader, symbolsCount)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		result[i] = symbols[randomIndex.Int64()]
	}

	return string(result)
}
