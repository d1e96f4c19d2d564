package entity

import "strings"

// Person represents a user as seen by the client
type Person struct {
	Username          string `json:"username"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	HasProfilePicture bool   `json:"hasProfilePicture"`
}

// DisplayName returns "First Last", or the username when both are empty
func (p Person) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Username
	}
	return name
}

// ProfilePictureURL returns the conventional picture URL, or "" if the person has none
func (p Person) ProfilePictureURL(apiBase string) string {
	if !p.HasProfilePicture {
		return ""
	}
	return strings.TrimRight(apiBase, "/") + "/users/" + p.Username + "/profile-picture"
}

// User is the authenticated account
type User struct {
	UserId    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Person returns the public identity of the user
func (u *User) Person() Person {
	return Person{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
