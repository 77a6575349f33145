package entities

// Account is an immutable snapshot of one account record. A nil
// Credentials pointer means the account holds no stored secret, which is
// meaningful state: it gates whether a sync may talk to the provider.
type Account struct {
	ID          AccountID    `json:"-"`
	Directory   string       `json:"-"`
	Provider    Provider     `json:"provider"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// WithCredentials returns a copy of the account with the stored secret
// replaced. Passing nil clears it.
func (a Account) WithCredentials(c *Credentials) Account {
	if c != nil {
		cc := *c
		c = &cc
	}
	a.Credentials = c
	return a
}
