package domain

// Identity describes who a session belongs to. Anonymous participation is a
// first-class variant: an anonymous identity has no user id and can never be
// the target of mention or notification routing, but it still appears in
// presence under its display name.
type Identity struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name"`
	Anonymous   bool   `json:"anonymous"`
}

// Addressable reports whether the identity can be targeted on a personal
// notification channel.
func (i Identity) Addressable() bool {
	return !i.Anonymous && i.UserID != ""
}
