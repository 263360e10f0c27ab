// SPDX-License-Identifier: ISC

package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/storage"
)

func open(t *testing.T) string {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "node")
	require.NoError(t, storage.Initialise(prefix, false))
	t.Cleanup(storage.Finalise)
	return prefix
}

func TestDSBlockRoundTrip(t *testing.T) {
	open(t)

	block := []byte("ds block body")
	require.NoError(t, storage.PutDSBlock(1, block))

	got, err := storage.GetDSBlock(1)
	require.NoError(t, err)
	assert.Equal(t, block, got)

	require.NoError(t, storage.DeleteDSBlock(1))
	_, err = storage.GetDSBlock(1)
	assert.Error(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	open(t)

	require.NoError(t, storage.PutMetadata(storage.LATESTACTIVEDSBLOCKNUM, []byte{0, 0, 0, 5}))

	got, err := storage.GetMetadata(storage.LATESTACTIVEDSBLOCKNUM)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 5}, got)
}

func TestGetAllDSBlocksAndTxBlocks(t *testing.T) {
	open(t)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, storage.PutDSBlock(i, []byte{byte(i)}))
	}
	require.NoError(t, storage.PutTxBlock(1, []byte("tx block")))

	dsBlocks, err := storage.GetAllDSBlocks()
	require.NoError(t, err)
	assert.Len(t, dsBlocks, 3)

	txBlocks, err := storage.GetAllTxBlocks()
	require.NoError(t, err)
	assert.Len(t, txBlocks, 1)
}

func TestGetDBName(t *testing.T) {
	cases := map[storage.DBTYPE]string{
		storage.META:        "metadata",
		storage.DS_BLOCK:    "ds_blocks",
		storage.TX_BLOCK:    "tx_blocks",
		storage.TX_BODIES:   "tx_bodies",
		storage.TX_BODY:     "tx_body",
		storage.TX_BODY_TMP: "tx_body_tmp",
	}
	for kind, want := range cases {
		assert.Equal(t, want, storage.GetDBName(kind))
	}
}

func TestResetDBClearsNamespace(t *testing.T) {
	open(t)

	require.NoError(t, storage.PutDSBlock(1, []byte("block")))
	require.NoError(t, storage.ResetDB(storage.DS_BLOCK))

	_, err := storage.GetDSBlock(1)
	assert.Error(t, err)
}

func TestTxBodyRollingFIFO(t *testing.T) {
	open(t)

	require.NoError(t, storage.PushBackTxBodyDB(1))
	assert.Equal(t, 1, storage.GetTxBodyDBSize())

	var key blockhash.Hash
	key[0] = 1
	require.NoError(t, storage.PutTxBody(key, []byte("body one")))

	require.NoError(t, storage.PushBackTxBodyDB(2))
	assert.Equal(t, 2, storage.GetTxBodyDBSize())

	got, err := storage.GetTxBody(key)
	require.NoError(t, err, "body should be found in older epoch db")
	assert.Equal(t, "body one", string(got))

	require.NoError(t, storage.PopFrontTxBodyDB(false))
	assert.Equal(t, 1, storage.GetTxBodyDBSize())

	_, err = storage.GetTxBody(key)
	assert.Error(t, err, "expected body from popped epoch to be gone")
}

func TestPopFrontStagesIntoTxBodiesTmp(t *testing.T) {
	open(t)

	require.NoError(t, storage.PushBackTxBodyDB(1))
	var keyOne blockhash.Hash
	keyOne[0] = 1
	require.NoError(t, storage.PutTxBody(keyOne, []byte("epoch one body")))

	require.NoError(t, storage.PushBackTxBodyDB(2))
	require.NoError(t, storage.PopFrontTxBodyDB(false))

	staged, err := storage.GetAllTxBodiesTmp()
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, "epoch one body", string(staged[0]))

	var keyTwo blockhash.Hash
	keyTwo[0] = 2
	require.NoError(t, storage.PutTxBody(keyTwo, []byte("epoch two body")))
	require.NoError(t, storage.PushBackTxBodyDB(3))
	require.NoError(t, storage.PopFrontTxBodyDB(false))

	staged, err = storage.GetAllTxBodiesTmp()
	require.NoError(t, err)
	require.Len(t, staged, 1, "tmp namespace holds only the most recently retired epoch")
	assert.Equal(t, "epoch two body", string(staged[0]))
}
