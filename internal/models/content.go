package models

import "time"

// Comment is a ranked discussion comment attached to a candidate.
type Comment struct {
	Body  string `json:"body"`
	Score int    `json:"score"`
}

// Candidate is a raw fetched item before filtering. It is discarded once it
// fails a filter stage or is converted into a CatalogItem.
type Candidate struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	SourceURL   string    `json:"sourceUrl"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Comments    []Comment `json:"comments,omitempty"`
	Category    string    `json:"category,omitempty"`
}

// CatalogItem is the unit served to clients. Created only when a refresh run
// commits; immutable afterwards. An empty AudioHandle means speech synthesis
// or upload failed and the item is served text-only.
type CatalogItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`
	Source      string `json:"source"`
	SourceURL   string `json:"sourceUrl"`
	ImageURL    string `json:"imageUrl"`
	AudioHandle string `json:"audioHandle,omitempty"`
}

// Catalog is one complete committed batch. Readers always observe either the
// previous complete batch or the next one, never a partially built catalog.
type Catalog struct {
	Items        []CatalogItem `json:"items"`
	GeneratedAt  time.Time     `json:"generatedAt"`
	SourceWindow string        `json:"sourceWindow"`
}

// AudioHandles returns the non-empty durable handles in the catalog, in item
// order.
func (c *Catalog) AudioHandles() []string {
	if c == nil {
		return nil
	}
	var handles []string
	for _, item := range c.Items {
		if item.AudioHandle != "" {
			handles = append(handles, item.AudioHandle)
		}
	}
	return handles
}

// ItemByID returns the catalog item with the given 1-based id.
func (c *Catalog) ItemByID(id int) (CatalogItem, bool) {
	if c == nil || id < 1 || id > len(c.Items) {
		return CatalogItem{}, false
	}
	return c.Items[id-1], true
}
