package reservation

import (
	"context"
	"sync"
)

// Store is a device's keyed reservation storage. Reads of a machine that was
// never written return an empty set.
type Store interface {
	Get(ctx context.Context, machineID string) (Set, error)
	Put(ctx context.Context, machineID string, s Set) error
	Clear(ctx context.Context, machineID string) error
}

// Stores hands out the Store scoped to one device.
type Stores interface {
	ForDevice(deviceID string) Store
}

// MemoryStores keeps encoded sets in process memory, keyed by device and
// storage key. Used when no database is configured and in tests.
type MemoryStores struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{data: make(map[string]map[string][]byte)}
}

func (m *MemoryStores) ForDevice(deviceID string) Store {
	return &memoryStore{parent: m, deviceID: deviceID}
}

type memoryStore struct {
	parent   *MemoryStores
	deviceID string
}

func (s *memoryStore) Get(_ context.Context, machineID string) (Set, error) {
	s.parent.mu.Lock()
	raw, ok := s.parent.data[s.deviceID][StorageKey(machineID)]
	s.parent.mu.Unlock()
	if !ok {
		return Set{}, nil
	}
	return decodeSet(raw)
}

func (s *memoryStore) Put(_ context.Context, machineID string, set Set) error {
	raw, err := encodeSet(set)
	if err != nil {
		return err
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	dev, ok := s.parent.data[s.deviceID]
	if !ok {
		dev = make(map[string][]byte)
		s.parent.data[s.deviceID] = dev
	}
	dev[StorageKey(machineID)] = raw
	return nil
}

func (s *memoryStore) Clear(_ context.Context, machineID string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	delete(s.parent.data[s.deviceID], StorageKey(machineID))
	return nil
}
