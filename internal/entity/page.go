package entity

// Page is one slice of a paged collection
type Page[T any] struct {
	Content []T  `json:"content"`
	Number  int  `json:"number"`
	Last    bool `json:"last"`
}
