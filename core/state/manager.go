package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nftlend/storage"
)

// ErrNestedAtomic is returned when Atomic is entered while another atomic
// section is still open.
var ErrNestedAtomic = errors.New("state: nested atomic section")

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Manager reads and writes RLP encoded records under keccak hashed keys.
// Writes made inside Atomic are journaled and reach the database in a single
// batch when the section succeeds; they are dropped when it fails.
//
// Manager does not order concurrent callers. Reads issued while an atomic
// section is open from another goroutine must be excluded by the caller.
type Manager struct {
	db storage.Database

	mu      sync.Mutex
	active  bool
	pending map[string]pendingWrite
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Atomic runs fn as one all-or-nothing unit of state change.
func (m *Manager) Atomic(fn func() error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return ErrNestedAtomic
	}
	m.active = true
	m.pending = make(map[string]pendingWrite)
	m.mu.Unlock()

	err := fn()

	m.mu.Lock()
	pending := m.pending
	m.active = false
	m.pending = nil
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.commit(pending)
}

func (m *Manager) commit(pending map[string]pendingWrite) error {
	if len(pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, key := range keys {
		write := pending[key]
		if write.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), write.value)
	}
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

func (m *Manager) get(key []byte) ([]byte, error) {
	m.mu.Lock()
	if m.active {
		if write, ok := m.pending[string(key)]; ok {
			m.mu.Unlock()
			if write.deleted {
				return nil, nil
			}
			return write.value, nil
		}
	}
	m.mu.Unlock()
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) put(key, value []byte) error {
	m.mu.Lock()
	if m.active {
		m.pending[string(key)] = pendingWrite{value: append([]byte(nil), value...)}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.db.Put(key, value)
}

func (m *Manager) del(key []byte) error {
	m.mu.Lock()
	if m.active {
		m.pending[string(key)] = pendingWrite{deleted: true}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	err := m.db.Delete(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// recordKey joins a prefix with the raw identity parts of a record.
func recordKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return buf
}

// KVPut stores value under key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.del(kvKey(key))
}
