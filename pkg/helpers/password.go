package helpers

import "golang.org/x/crypto/bcrypt"

// bcrypt work factor; bcrypt.DefaultCost is 10.
const hashCost = bcrypt.DefaultCost

// HashPassword derives a salted one-way hash from the plaintext password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PasswordMatches verifies plain against a stored bcrypt hash.
// Comparison is done by recomputation, never by reversing the hash.
func PasswordMatches(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
