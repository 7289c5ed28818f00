package page

import "time"

// Page is a loaded page snapshot, the equivalent of one browser tab.
type Page struct {
	ID       string
	URL      string
	HTML     []byte
	LoadedAt time.Time
}
