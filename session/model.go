package session

// Session is the persisted record behind a sid.
type Session struct {
	SessionID string `json:"-"`
	Subject   string `json:"sub"`
	Username  string `json:"usr"`
	Role      string `json:"role"`
	IP        string `json:"ip,omitempty"`
	CreatedAt int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
