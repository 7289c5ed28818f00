package models

// PageDocument is the normalized text and metadata of one page view.
type PageDocument struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	BodyText        string `json:"bodyText"`
	MetaDescription string `json:"metaDescription"`
}
