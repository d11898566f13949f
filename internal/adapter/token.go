package adapter

// Token represents an API token
type Token struct {
	Key    string
	Secret string
}

// NewToken creates an API token
func NewToken(key, secret string) Token {
	return Token{Key: key, Secret: secret}
}

// IsEmpty reports whether either half of the token is missing.
func (t Token) IsEmpty() bool {
	return len(t.Key) == 0 || len(t.Secret) == 0
}

// String never prints the secret.
func (t Token) String() string {
	if len(t.Key) <= 6 {
		return "***"
	}
	return t.Key[:6] + "***"
}
