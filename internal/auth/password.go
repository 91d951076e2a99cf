package auth

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when a login is unknown, so that response
// time does not reveal whether the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("shoestore-no-such-user"), bcrypt.DefaultCost)

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck spends the same work as CheckPassword and always fails.
func BurnPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
