// SPDX-License-Identifier: ISC

// Package storage - leveldb-backed persistence for DS/Tx blocks,
// per-epoch transaction bodies and chain metadata
package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/fault"
)

// DBTYPE - identifies one of the DS core's leveldb-backed namespaces
type DBTYPE int

// all namespaces this package manages
const (
	META DBTYPE = iota
	DS_BLOCK
	TX_BLOCK
	TX_BODIES
	TX_BODY
	TX_BODY_TMP
)

// GetDBName - the on-disk namespace name for kind, per BlockStorage.h's
// own GetDBName
func GetDBName(kind DBTYPE) string {
	switch kind {
	case META:
		return "metadata"
	case DS_BLOCK:
		return "ds_blocks"
	case TX_BLOCK:
		return "tx_blocks"
	case TX_BODIES:
		return "tx_bodies"
	case TX_BODY:
		return "tx_body"
	case TX_BODY_TMP:
		return "tx_body_tmp"
	default:
		return ""
	}
}

// MetaType - the kinds of small metadata values kept in the META
// namespace
type MetaType byte

const (
	STATEROOT MetaType = iota
	DSINCOMPLETED
	LATESTACTIVEDSBLOCKNUM
)

const (
	currentVersion = 0x100
)

var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

// globals
var globalData struct {
	sync.RWMutex
	log *logger.L

	directory string
	readOnly  bool

	metaDB      *leveldb.DB
	dsBlockDB   *leveldb.DB
	txBlockDB   *leveldb.DB
	txBodyTmpDB *leveldb.DB

	// rolling FIFO of per-DS-epoch tx body databases, oldest first
	txBodyDBs []*leveldb.DB
	txBodyNum []uint64

	initialised bool
}

// Initialise - open every namespace's leveldb file under directory
func Initialise(directory string, readOnly bool) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("storage")
	globalData.directory = directory
	globalData.readOnly = readOnly

	ok := false
	defer func() {
		if !ok {
			closeAll()
		}
	}()

	var err error
	globalData.metaDB, err = openDB(dbPath(directory, GetDBName(META)), readOnly)
	if err != nil {
		return err
	}
	globalData.dsBlockDB, err = openDB(dbPath(directory, GetDBName(DS_BLOCK)), readOnly)
	if err != nil {
		return err
	}
	globalData.txBlockDB, err = openDB(dbPath(directory, GetDBName(TX_BLOCK)), readOnly)
	if err != nil {
		return err
	}
	globalData.txBodyTmpDB, err = openDB(dbPath(directory, GetDBName(TX_BODY_TMP)), readOnly)
	if err != nil {
		return err
	}

	globalData.initialised = true
	ok = true
	return nil
}

// Finalise - close every open namespace
func Finalise() {
	globalData.Lock()
	defer globalData.Unlock()

	closeAll()
	globalData.initialised = false
}

func closeAll() {
	for _, db := range globalData.txBodyDBs {
		db.Close()
	}
	globalData.txBodyDBs = nil
	globalData.txBodyNum = nil

	if globalData.txBodyTmpDB != nil {
		globalData.txBodyTmpDB.Close()
		globalData.txBodyTmpDB = nil
	}
	if globalData.txBlockDB != nil {
		globalData.txBlockDB.Close()
		globalData.txBlockDB = nil
	}
	if globalData.dsBlockDB != nil {
		globalData.dsBlockDB.Close()
		globalData.dsBlockDB = nil
	}
	if globalData.metaDB != nil {
		globalData.metaDB.Close()
		globalData.metaDB = nil
	}
}

func dbPath(directory string, name string) string {
	return directory + "-" + name + ".leveldb"
}

func openDB(path string, readOnly bool) (*leveldb.DB, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}
	db, err := leveldb.OpenFile(path, opt)
	if err != nil {
		return nil, err
	}

	version, err := db.Get(versionKey, nil)
	if err == leveldb.ErrNotFound {
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, currentVersion)
		if err := db.Put(versionKey, buf, nil); err != nil {
			db.Close()
			return nil, err
		}
	} else if err != nil {
		db.Close()
		return nil, err
	} else if len(version) == 4 && binary.BigEndian.Uint32(version) > currentVersion {
		db.Close()
		return nil, fmt.Errorf("database version newer than supported: %s", path)
	}

	return db, nil
}

func blockKey(blockNumber uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, blockNumber)
	return key
}

// PutDSBlock - persist the DS block body at blockNumber
func PutDSBlock(blockNumber uint64, block []byte) error {
	return put(globalData.dsBlockDB, blockKey(blockNumber), block)
}

// GetDSBlock - fetch a previously stored DS block
func GetDSBlock(blockNumber uint64) ([]byte, error) {
	return get(globalData.dsBlockDB, blockKey(blockNumber))
}

// DeleteDSBlock - remove a DS block
func DeleteDSBlock(blockNumber uint64) error {
	return del(globalData.dsBlockDB, blockKey(blockNumber))
}

// GetAllDSBlocks - every stored DS block body, in ascending block
// number order, per BlockStorage::GetAllDSBlocks
func GetAllDSBlocks() ([][]byte, error) {
	return scanAll(globalData.dsBlockDB)
}

// GetAllTxBlocks - every stored Tx block body, in ascending block
// number order, per BlockStorage::GetAllTxBlocks
func GetAllTxBlocks() ([][]byte, error) {
	return scanAll(globalData.txBlockDB)
}

func scanAll(db *leveldb.DB) ([][]byte, error) {
	if db == nil {
		return nil, fault.ErrNotInitialised
	}

	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	var out [][]byte
	for iter.Next() {
		key := iter.Key()
		if len(key) == 8 && !bytesEqual(key, versionKey) {
			value := make([]byte, len(iter.Value()))
			copy(value, iter.Value())
			out = append(out, value)
		}
	}
	return out, iter.Error()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PutTxBlock - persist the Tx block body at blockNumber
func PutTxBlock(blockNumber uint64, block []byte) error {
	return put(globalData.txBlockDB, blockKey(blockNumber), block)
}

// GetTxBlock - fetch a previously stored Tx block
func GetTxBlock(blockNumber uint64) ([]byte, error) {
	return get(globalData.txBlockDB, blockKey(blockNumber))
}

// DeleteTxBlock - remove a Tx block
func DeleteTxBlock(blockNumber uint64) error {
	return del(globalData.txBlockDB, blockKey(blockNumber))
}

// PutMetadata - store a small metadata value
func PutMetadata(kind MetaType, data []byte) error {
	return put(globalData.metaDB, []byte{byte(kind)}, data)
}

// GetMetadata - fetch a metadata value
func GetMetadata(kind MetaType) ([]byte, error) {
	return get(globalData.metaDB, []byte{byte(kind)})
}

// PushBackTxBodyDB - open a new per-epoch tx body database and append
// it to the rolling FIFO, grounded on the one-database-per-DS-epoch
// sharing window the reference implementation keeps for recently
// finished epochs
func PushBackTxBodyDB(blockNumber uint64) error {
	globalData.Lock()
	defer globalData.Unlock()

	db, err := openDB(dbPath(globalData.directory, fmt.Sprintf("%s_%d", GetDBName(TX_BODIES), blockNumber)), globalData.readOnly)
	if err != nil {
		return err
	}
	globalData.txBodyDBs = append(globalData.txBodyDBs, db)
	globalData.txBodyNum = append(globalData.txBodyNum, blockNumber)
	return nil
}

// PopFrontTxBodyDB - stage the oldest tx body database's contents into
// the txBodiesTmp namespace, then close and drop it; with mandatory
// set, always pop even if it is the only database remaining
func PopFrontTxBodyDB(mandatory bool) error {
	globalData.Lock()
	defer globalData.Unlock()

	if len(globalData.txBodyDBs) == 0 {
		return fault.ErrBlockNotFound
	}
	if len(globalData.txBodyDBs) == 1 && !mandatory {
		return nil
	}

	if err := stageIntoTmp(globalData.txBodyDBs[0]); err != nil {
		return err
	}

	globalData.txBodyDBs[0].Close()
	globalData.txBodyDBs = globalData.txBodyDBs[1:]
	globalData.txBodyNum = globalData.txBodyNum[1:]
	return nil
}

// stageIntoTmp - replace the txBodiesTmp namespace's contents with
// retiring's, so it always holds exactly the most recently popped
// epoch's tx bodies for whoever is still serving them
func stageIntoTmp(retiring *leveldb.DB) error {
	if globalData.txBodyTmpDB == nil {
		return nil
	}

	clear := new(leveldb.Batch)
	citer := globalData.txBodyTmpDB.NewIterator(nil, nil)
	for citer.Next() {
		if bytesEqual(citer.Key(), versionKey) {
			continue
		}
		clear.Delete(append([]byte{}, citer.Key()...))
	}
	citer.Release()
	if err := citer.Error(); err != nil {
		return err
	}
	if err := globalData.txBodyTmpDB.Write(clear, nil); err != nil {
		return err
	}

	stage := new(leveldb.Batch)
	riter := retiring.NewIterator(nil, nil)
	defer riter.Release()
	for riter.Next() {
		if bytesEqual(riter.Key(), versionKey) {
			continue
		}
		stage.Put(append([]byte{}, riter.Key()...), append([]byte{}, riter.Value()...))
	}
	if err := riter.Error(); err != nil {
		return err
	}
	return globalData.txBodyTmpDB.Write(stage, nil)
}

// GetAllTxBodiesTmp - every tx body currently staged in the
// txBodiesTmp namespace, i.e. belonging to the epoch most recently
// retired from the rolling FIFO
func GetAllTxBodiesTmp() ([][]byte, error) {
	return scanAllValues(globalData.txBodyTmpDB)
}

// scanAllValues - every value in db except the namespace's version
// marker, key length unconstrained; used for namespaces whose keys
// are not fixed-width block numbers
func scanAllValues(db *leveldb.DB) ([][]byte, error) {
	if db == nil {
		return nil, fault.ErrNotInitialised
	}

	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	var out [][]byte
	for iter.Next() {
		if bytesEqual(iter.Key(), versionKey) {
			continue
		}
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		out = append(out, value)
	}
	return out, iter.Error()
}

// GetTxBodyDBSize - how many per-epoch tx body databases are
// currently retained
func GetTxBodyDBSize() int {
	globalData.RLock()
	defer globalData.RUnlock()
	return len(globalData.txBodyDBs)
}

// PutTxBody - persist a transaction body into the most recently
// opened per-epoch database
func PutTxBody(key blockhash.Hash, body []byte) error {
	globalData.RLock()
	defer globalData.RUnlock()

	if len(globalData.txBodyDBs) == 0 {
		return fault.ErrDatabaseError
	}
	current := globalData.txBodyDBs[len(globalData.txBodyDBs)-1]
	return put(current, key[:], body)
}

// GetTxBody - search the rolling set of tx body databases, most
// recent first, for key
func GetTxBody(key blockhash.Hash) ([]byte, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	for i := len(globalData.txBodyDBs) - 1; i >= 0; i-- {
		value, err := get(globalData.txBodyDBs[i], key[:])
		if err == nil {
			return value, nil
		}
		if !fault.IsErrNotFound(err) {
			return nil, err
		}
	}
	return nil, fault.ErrTxBodyNotFound
}

// ResetDB - erase and recreate one namespace
func ResetDB(kind DBTYPE) error {
	globalData.Lock()
	defer globalData.Unlock()

	switch kind {
	case META:
		return resetSingle(&globalData.metaDB, dbPath(globalData.directory, GetDBName(META)))
	case DS_BLOCK:
		return resetSingle(&globalData.dsBlockDB, dbPath(globalData.directory, GetDBName(DS_BLOCK)))
	case TX_BLOCK:
		return resetSingle(&globalData.txBlockDB, dbPath(globalData.directory, GetDBName(TX_BLOCK)))
	case TX_BODIES, TX_BODY:
		var err error
		for i, db := range globalData.txBodyDBs {
			db.Close()
			name := fmt.Sprintf("%s_%d", GetDBName(TX_BODIES), globalData.txBodyNum[i])
			if rmErr := os.RemoveAll(dbPath(globalData.directory, name)); rmErr != nil && err == nil {
				err = rmErr
			}
		}
		globalData.txBodyDBs = nil
		globalData.txBodyNum = nil
		return err
	case TX_BODY_TMP:
		return resetSingle(&globalData.txBodyTmpDB, dbPath(globalData.directory, GetDBName(TX_BODY_TMP)))
	default:
		return fault.ErrInvalidState
	}
}

// ResetAll - erase every namespace this package manages
func ResetAll() error {
	if err := ResetDB(META); err != nil {
		return err
	}
	if err := ResetDB(DS_BLOCK); err != nil {
		return err
	}
	if err := ResetDB(TX_BLOCK); err != nil {
		return err
	}
	if err := ResetDB(TX_BODIES); err != nil {
		return err
	}
	return ResetDB(TX_BODY_TMP)
}

func resetSingle(db **leveldb.DB, path string) error {
	if *db != nil {
		(*db).Close()
	}
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	fresh, err := openDB(path, globalData.readOnly)
	if err != nil {
		return err
	}
	*db = fresh
	return nil
}

func put(db *leveldb.DB, key []byte, value []byte) error {
	if db == nil {
		return fault.ErrNotInitialised
	}
	return db.Put(key, value, nil)
}

func get(db *leveldb.DB, key []byte) ([]byte, error) {
	if db == nil {
		return nil, fault.ErrNotInitialised
	}
	value, err := db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, fault.ErrBlockNotFound
	}
	return value, err
}

func del(db *leveldb.DB, key []byte) error {
	if db == nil {
		return fault.ErrNotInitialised
	}
	return db.Delete(key, nil)
}
