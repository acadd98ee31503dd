// Package domain contains the core entities of the lending server: books, loans and their filters.
package domain

// Book is a title held by the library. ISBN is unique across all books.
type Book struct {
	Entity
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// IsEmptyFilter reports whether b, used as a query example, constrains nothing.
func (b Book) IsEmptyFilter() bool {
	return b.ID == "" && b.Title == "" && b.Author == "" && b.ISBN == ""
}
