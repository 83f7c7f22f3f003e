// Package model defines database models
package model

type Image struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Key of the object in the storage bucket. Built from the upload
	// timestamp and the sanitized original name so different users can
	// upload files with the same name
	Filename string `gorm:"uniqueIndex;not null" json:"filename"`

	// Public address of the stored object. This is what clients use to
	// reference an image in the list and delete endpoints
	URL string `gorm:"uniqueIndex;not null" json:"url"`

	// Unix millisecond timestamp set when the record is persisted.
	// Defines the gallery order (newest first)
	UploadedAt int64 `gorm:"not null" json:"uploaded_at"`
}
