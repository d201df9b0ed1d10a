package domain

const (
	// AlbumCapLimit is the highest album identifier processed in a pass.
	AlbumCapLimit = 10
	// PhotosPerAlbumLimit is the number of items admitted per album in a pass.
	PhotosPerAlbumLimit = 5
)

// AlbumID identifies an album; it is also the name of its directory under the cache root.
type AlbumID int

// WithinCap reports whether the album may still be processed in a pass.
func (a AlbumID) WithinCap() bool {
	return int(a) <= AlbumCapLimit
}
