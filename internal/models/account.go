package models

// Credentials identify one mail account.
type Credentials struct {
	// Address is the account's email address. It picks the provider and is
	// used as the sender of outgoing mail.
	Address string `json:"address"`
	// Username is the login name. Empty means Address.
	Username string `json:"username,omitempty"`
	// Secret is the password or app password.
	Secret string `json:"-"`
}

// LoginName returns the name to authenticate with.
func (c Credentials) LoginName() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Address
}
