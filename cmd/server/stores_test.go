package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStores_UnreachableDatabase(t *testing.T) {
	db, sessionDB, closeAll, err := openStores("postgres://u:p@127.0.0.1:1/movienest?sslmode=disable&connect_timeout=1")
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Nil(t, sessionDB)
	assert.Nil(t, closeAll)
}
