package domain

// Member is a live connection's presence entry in a room. ConnID is
// unique per connection and unrelated to any user account.
type Member struct {
	ConnID   string `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
}
