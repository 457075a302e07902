package music

// DuplicateCandidate is a song already present in the catalog that may clash with an upload.
type DuplicateCandidate struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Year   int    `json:"year,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// CatalogArtist is an artist entry as listed by the catalog.
type CatalogArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogAlbum is an album entry as listed by the catalog.
type CatalogAlbum struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Year    int    `json:"year,omitempty"`
	Genre   string `json:"genre,omitempty"`
	CoverID string `json:"cover,omitempty"`
}
