package session

import (
	"encoding/json"
	"strconv"
)

// User is the logged-in profile as the server reports it. It is opaque
// beyond display use; only the fields the client shows are typed.
type User struct {
	ID       UserID `json:"id"`
	Nickname string `json:"nickname,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Gender   string `json:"gender,omitempty"`
	IsVIP    bool   `json:"is_vip,omitempty"`
}

// Patch is a merge-patch over User; nil fields stay untouched.
type Patch struct {
	Nickname *string
	Phone    *string
	Email    *string
	Avatar   *string
	Gender   *string
	IsVIP    *bool
}

func (u *User) apply(p Patch) {
	if p.Nickname != nil {
		u.Nickname = *p.Nickname
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.IsVIP != nil {
		u.IsVIP = *p.IsVIP
	}
}

// UserID tolerates the server returning the ID as a JSON string or number;
// older deployments used integer primary keys.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) MarshalJSON() ([]byte, error) {
	// Preserve the numeric form on round-trip so older servers keep
	// recognizing the value.
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id UserID) String() string {
	return string(id)
}
