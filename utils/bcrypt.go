package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes operator credentials at the default cost; login
// latency is not a concern for this backend.
func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
