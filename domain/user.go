package domain

// User is the remote service's user record, reduced to what the tools need.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Team is one team the user belongs to. Only the first team is used.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Session is the authenticated handle: the current user's identity and the
// resolved team id. Created once at process start, read-only afterward.
type Session struct {
	UserID   string
	Username string
	TeamID   string
}
