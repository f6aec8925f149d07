package models

// User представляет пользователя, как его отдаёт бэкенд
type User struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// IsZero сообщает, что пользователь не пришёл в ответе
func (u *User) IsZero() bool {
	return u == nil || u.ID == ""
}
