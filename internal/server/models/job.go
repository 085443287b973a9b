package models

// JobPayload is the body of thumbnail and welcome-email jobs. FileID is only
// set on thumbnail jobs.
type JobPayload struct {
	UserID string `json:"userId"`
	FileID string `json:"fileId,omitempty"`
}
