package types

import "time"

// Activity event types.
const (
	EventFileUploaded = "file.uploaded"
	EventFileDeleted  = "file.deleted"
	EventFileShared   = "file.shared"
)

// ActivityEvent describes a successful mutation performed through the client.
type ActivityEvent struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// UserID is the owner of the affected file.
	UserID int64 `json:"userId"`

	// Actor is the subject of the session that performed the action.
	Actor string `json:"actor,omitempty"`

	// FileID identifies the affected file, zero for uploads whose id is unknown.
	FileID int64 `json:"fileId,omitempty"`

	// FileName is the display name of the affected file.
	FileName string `json:"fileName,omitempty"`

	// ShareURL is set for share events.
	ShareURL string `json:"shareUrl,omitempty"`

	// OccurredAt is when the client observed the successful response.
	OccurredAt time.Time `json:"occurredAt"`
}
