package auth

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hostel/internal/model"
)

// ErrBadCredentials hides whether the username or the password was wrong.
var ErrBadCredentials = errors.New("invalid username or password")

// Credentials configure one account. Password is either plain text, hashed at
// startup, or an existing bcrypt hash.
type Credentials struct {
	Username string
	Password string
	Role     model.Role
}

type account struct {
	role model.Role
	hash []byte
}

// Directory is the fixed set of accounts allowed to sign in.
type Directory struct {
	accounts map[string]account
}

// NewDirectory hashes the configured passwords. Entries without a username or
// password are skipped.
func NewDirectory(cost int, creds ...Credentials) (*Directory, error) {
	d := &Directory{accounts: make(map[string]account, len(creds))}
	for _, c := range creds {
		if c.Username == "" || c.Password == "" {
			continue
		}
		if !c.Role.Valid() {
			return nil, errors.New("account " + c.Username + ": unknown role " + string(c.Role))
		}
		hash := []byte(c.Password)
		if _, err := bcrypt.Cost(hash); err != nil {
			hash, err = bcrypt.GenerateFromPassword([]byte(c.Password), cost)
			if err != nil {
				return nil, err
			}
		}
		d.accounts[strings.ToLower(c.Username)] = account{role: c.Role, hash: hash}
	}
	return d, nil
}

// Authenticate returns the role of a valid username and password pair.
func (d *Directory) Authenticate(username, password string) (model.Role, error) {
	a, ok := d.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return "", ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", ErrBadCredentials
	}
	return a.role, nil
}

func (d *Directory) role(username string) (model.Role, bool) {
	a, ok := d.accounts[strings.ToLower(username)]
	return a.role, ok
}

// Authenticator signs in directory accounts and rotates their tokens.
type Authenticator struct {
	Directory  *Directory
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login checks the password and issues a token pair for the account.
func (a *Authenticator) Login(username, password string) (TokenPair, model.Role, error) {
	role, err := a.Directory.Authenticate(username, password)
	if err != nil {
		return TokenPair{}, "", err
	}
	subject := strings.ToLower(strings.TrimSpace(username))
	tokens, err := Issue(subject, role, a.Issuer, a.SigningKey, a.AccessTTL, a.RefreshTTL)
	return tokens, role, err
}

// Refresh exchanges a refresh token for a new pair. The role is re-read from
// the directory so removed accounts stop refreshing.
func (a *Authenticator) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := Parse(refreshToken, a.SigningKey, a.Issuer, TypeRefresh)
	if err != nil {
		return TokenPair{}, ErrBadCredentials
	}
	role, ok := a.Directory.role(claims.Subject)
	if !ok {
		return TokenPair{}, ErrBadCredentials
	}
	return Issue(claims.Subject, role, a.Issuer, a.SigningKey, a.AccessTTL, a.RefreshTTL)
}
