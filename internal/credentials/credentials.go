// Package credentials supplies vantage device logins without the rest
// of the system caring where they come from.
package credentials

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Provider fetches login credentials for a vantage point by id.
type Provider interface {
	Fetch(vantageID string) (models.Credentials, error)
}

// Static returns the same fixed credentials for every vantage point.
type Static struct {
	Credentials models.Credentials
}

func (s Static) Fetch(string) (models.Credentials, error) {
	return s.Credentials, nil
}

// FromEnv builds a provider from PINGTIMES_USERNAME / PINGTIMES_PASSWORD
// if both are set.
func FromEnv() (Provider, bool) {
	user := os.Getenv("PINGTIMES_USERNAME")
	pass := os.Getenv("PINGTIMES_PASSWORD")
	if user == "" || pass == "" {
		return nil, false
	}
	return Static{Credentials: models.Credentials{Username: user, Password: pass}}, true
}

// Terminal prompts on stdin once and reuses the answer for every
// vantage point. The password is read with echo disabled.
type Terminal struct {
	mu     sync.Mutex
	cached *models.Credentials
}

func (t *Terminal) Fetch(string) (models.Credentials, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached != nil {
		return *t.cached, nil
	}

	fmt.Print("Username: ")
	var user string
	if _, err := fmt.Scanln(&user); err != nil {
		return models.Credentials{}, fmt.Errorf("read username: %w", err)
	}

	fmt.Print("Password: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return models.Credentials{}, fmt.Errorf("read password: %w", err)
	}

	creds := models.Credentials{Username: user, Password: string(secret)}
	t.cached = &creds
	return creds, nil
}
