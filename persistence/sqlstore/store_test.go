package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rqerrors "github.com/dnstools/requestq/errors"
)

func TestNewStore(t *testing.T) {
	store := NewStore(nil, "")

	require.NotNil(t, store)
	assert.Equal(t, DefaultTable, store.table)
}

func TestNewStore_CustomTable(t *testing.T) {
	store := NewStore(nil, "audit_log")
	assert.Equal(t, "audit_log", store.table)
}

func TestStore_Save_NotConnected(t *testing.T) {
	store := NewStore(nil, "")

	err := store.Save(nil)
	assert.ErrorIs(t, err, rqerrors.ErrNotConnected)
}

func TestStore_Load_NotConnected(t *testing.T) {
	store := NewStore(nil, "")

	entries, err := store.Load()
	assert.ErrorIs(t, err, rqerrors.ErrNotConnected)
	assert.Nil(t, entries)
}
