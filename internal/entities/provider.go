package entities

// Provider describes a remote library a user can hold an account with.
// The ID is the provider's URI and is the stable identity; the URLs point
// at the provider's login check and catalog feed endpoints.
type Provider struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name,omitempty"`
	AuthRequired bool   `json:"auth_required"`
	LoginURL     string `json:"login_url,omitempty"`
	CatalogURL   string `json:"catalog_url,omitempty"`
}

// Credentials is the secret used to authenticate an account against its
// provider: either a barcode/PIN pair or an opaque token.
type Credentials struct {
	Barcode string `json:"barcode,omitempty"`
	PIN     string `json:"pin,omitempty"`
	Token   string `json:"token,omitempty"`
}
