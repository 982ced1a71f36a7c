package auth

import (
	"errors"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the configuration needed for authentication.
// It includes the client ID, client secret, and the token endpoint URL.
type Conf struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
}

// Validate reports missing credentials.
func (c Conf) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("auth: client_id is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("auth: client_secret is required"))
	}
	if c.AuthURL == "" {
		errs = append(errs, errors.New("auth: auth_url is required"))
	}
	return errors.Join(errs...)
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
	}
}
