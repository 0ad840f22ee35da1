package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

func TestNewBulkFailure(t *testing.T) {
	failure := NewBulkFailure(2, "abc", pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel delivered orders"))
	assert.Equal(t, "abc", failure.ID)
	assert.Equal(t, 2, failure.Index)
	assert.False(t, failure.Success)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), failure.Code)
	assert.Equal(t, "cannot cancel delivered orders", failure.Error)
}

func TestNewBulkFailureHidesInternalDetail(t *testing.T) {
	failure := NewBulkFailure(0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("pq: connection reset"), "load order"))
	assert.Equal(t, string(pkgerrors.CodeDependency), failure.Code)
	assert.Equal(t, "dependency unavailable", failure.Error)

	failure = NewBulkFailure(0, "", errors.New("boom"))
	assert.Equal(t, string(pkgerrors.CodeInternal), failure.Code)
	assert.Equal(t, "internal server error", failure.Error)
}
