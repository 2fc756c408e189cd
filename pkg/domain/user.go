package domain

import "fmt"

// UserInfo is a resolved identity from the remote user directory. Created
// lazily on first lookup and cached by the users service; all fields except ID
// are optional.
type UserInfo struct {
	ID       string
	Name     string
	Username string
	Email    string
}

// DisplayName renders the friendliest available label for the user.
// Preference order: "name (email)" > name > email > "user <id prefix>".
func (u UserInfo) DisplayName() string {
	switch {
	case u.Name != "" && u.Email != "":
		return fmt.Sprintf("%s (%s)", u.Name, u.Email)
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return "user " + shortID(u.ID)
	}
}

// IsZero reports whether the identity carries no information at all.
func (u UserInfo) IsZero() bool {
	return u.ID == "" && u.Name == "" && u.Username == "" && u.Email == ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "unknown"
	}
	return id
}
