package library

// Book is the catalog entity. The ID is assigned by the storage engine on
// creation; a zero ID means the book has not been stored yet.
//
// Stock counts the currently available copies, it decreases when a loan
// opens and increases when a loan closes. The engine guarantees it never
// goes negative.
type Book struct {
	ID          int64
	Category    string
	Title       string
	Press       string
	PublishYear int
	Author      string
	Price       float64
	Stock       int
}
