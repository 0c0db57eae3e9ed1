package common

import (
	"github.com/google/uuid"
)

// NewBatchID generates a unique batch identifier with the "batch_" prefix.
func NewBatchID() string {
	return "batch_" + uuid.New().String()
}

// NewFileID generates a unique document-file identifier with the "file_" prefix.
func NewFileID() string {
	return "file_" + uuid.New().String()
}

// NewResultID generates a unique scan-result identifier with the "result_" prefix.
func NewResultID() string {
	return "result_" + uuid.New().String()
}
