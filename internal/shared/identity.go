package shared

// Identity is the projection of the authenticated user held in memory by the
// session store. It is never persisted in cookies; the cookie jar only carries
// the opaque token and the role mirror.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Verified  bool   `json:"verified"`
}
