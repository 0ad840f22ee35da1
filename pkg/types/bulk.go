package types

import (
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

// BulkFailure is one failed entry of a best-effort batch.
type BulkFailure struct {
	ID      string `json:"id,omitempty"`
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// NewBulkFailure converts an item error into its response shape. Internal
// and dependency failures only expose their public message.
func NewBulkFailure(index int, id string, err error) BulkFailure {
	code := pkgerrors.CodeInternal
	message := pkgerrors.MetadataFor(code).PublicMessage
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
		message = typed.Message()
		if code == pkgerrors.CodeInternal || code == pkgerrors.CodeDependency {
			message = pkgerrors.MetadataFor(code).PublicMessage
		}
	}
	return BulkFailure{ID: id, Index: index, Error: message, Code: string(code)}
}
