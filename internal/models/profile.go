package models

// UserProfile is the display data for an author, fetched lazily and cached
// for the session.
type UserProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
