package entity

// Conversation represents a chat with a fixed member set
type Conversation struct {
	Id          string   `json:"id"`
	Name        string   `json:"name"`
	Members     []Person `json:"membersList,omitempty"`
	LastMessage *Message `json:"lastMessage,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
}

// IsDraft reports whether the conversation has not been created on the server yet
func (c *Conversation) IsDraft() bool {
	return c.Id == ""
}

// HasMember checks membership by username
func (c *Conversation) HasMember(username string) bool {
	for _, m := range c.Members {
		if m.Username == username {
			return true
		}
	}
	return false
}
