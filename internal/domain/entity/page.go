package entity

// PageSnapshot is what the healer sees of a live page.
type PageSnapshot struct {
	URL   string
	Title string
	HTML  string
	Text  string
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
