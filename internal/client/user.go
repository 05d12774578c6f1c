package client

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// User is the authenticated session principal. The client holds at most
// one User at a time.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Token    string `json:"token"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// userFromJSON builds a User from the "account" object a login response
// carries. Numeric ids are normalized to their string form.
func userFromJSON(account gjson.Result) *User {
	return &User{
		ID:       account.Get("id").String(),
		Username: account.Get("username").String(),
		Name:     account.Get("name").String(),
		Token:    account.Get("token").String(),
		Email:    account.Get("email").String(),
		Phone:    account.Get("phone").String(),
	}
}

// FirstName returns the capitalized first word of the user's name, or ""
// when no name is set.
func (u *User) FirstName() string {
	if u == nil || u.Name == "" {
		return ""
	}
	first := strings.Fields(u.Name)
	if len(first) == 0 {
		return ""
	}
	name := strings.ToLower(first[0])
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
