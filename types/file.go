package types

// File represents a stored file as reported by the backend.
// Records are created server-side on upload and are read-only to the client.
type File struct {
	// FileID is the unique identifier of the file.
	FileID int64 `json:"fileId"`

	// FileName is the display name of the file.
	FileName string `json:"fileName"`

	// FileType is the content type recorded at upload.
	FileType string `json:"fileType,omitempty"`

	// FileSize is the size of the file in bytes.
	FileSize int64 `json:"fileSize"`

	// FilePath is the backend storage path. Clients only display it.
	FilePath string `json:"filePath,omitempty"`

	// UserID identifies the owner of the file.
	UserID int64 `json:"userId"`

	// ShareToken is the token embedded in the share link, if any.
	ShareToken string `json:"shareToken,omitempty"`

	// ShareEnabled reports whether a share link has been generated.
	ShareEnabled bool `json:"shareEnabled"`

	// ShareURL is the public link granting access to the file.
	ShareURL string `json:"shareUrl,omitempty"`
}

// ShareLink is the response of the share endpoint.
type ShareLink struct {
	ShareURL string `json:"shareUrl"`
}
