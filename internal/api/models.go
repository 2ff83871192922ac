package api

import (
	"time"

	"pulse/internal/auth"
	"pulse/internal/user"
)

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createStartUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	ID       int64   `json:"id"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *int    `json:"role,omitempty"`
	State    *int    `json:"state,omitempty"`
}

type deleteUserRequest struct {
	ID int64 `json:"id"`
}

// userView is the account shape shown to regular users.
type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// userBigView adds the administrative fields.
type userBigView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      int       `json:"role"`
	State     int       `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// viewFor shapes an account for the caller: admins get the big view,
// everyone else the small one.
func viewFor(who auth.Identity, u user.User) any {
	if who.Role == auth.RoleAdmin {
		return userBigView{
			ID:        u.ID,
			Username:  u.Username,
			Role:      int(u.Role),
			State:     int(u.State),
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		}
	}
	return userView{ID: u.ID, Username: u.Username}
}
