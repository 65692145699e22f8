package domain

import "time"

// Member is the profile record of a registered subject. Email is the subject
// identity carried in tokens and never changes after signup.
type Member struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Authorities  []Authority
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthorityNames flattens the member's authorities for token claims.
func (m *Member) AuthorityNames() []string {
	names := make([]string, 0, len(m.Authorities))
	for _, a := range m.Authorities {
		names = append(names, string(a))
	}
	return names
}
