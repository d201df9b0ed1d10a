package domain

// CatalogEntry is one downloadable item of the remote catalog.
// Entries are expected to arrive sorted by ascending AlbumID.
type CatalogEntry struct {
	ItemID  int     `json:"id"`      // Item identifier
	AlbumID AlbumID `json:"albumId"` // Owning album
	URL     string  `json:"url"`     // Location of the item payload
}
