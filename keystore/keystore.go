// Package keystore persists link keys to a JSON file so paired peers
// survive a controller restart. The file is the mirror; callers keep their
// own in-memory state authoritative.
package keystore

import (
	"encoding/hex"
	"io/ioutil"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/btvirt/btvirt"
)

type keyFile struct {
	Keys []keyInfo `json:"keys"`
}

type keyInfo struct {
	Address string `json:"address"`
	LinkKey string `json:"linkKey"`
}

// Store is a file-backed link-key store.
type Store struct {
	filename string
	lock     sync.RWMutex
}

func New(filename string) *Store {
	return &Store{filename: filename}
}

// Store writes or replaces the key for addr.
func (s *Store) Store(addr btvirt.Address, key [16]byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys, err := s.load()
	if err != nil {
		return err
	}

	info := keyInfo{Address: addr.String(), LinkKey: hex.EncodeToString(key[:])}
	replaced := false
	for i, k := range keys.Keys {
		if k.Address == info.Address {
			keys.Keys[i] = info
			replaced = true
			break
		}
	}
	if !replaced {
		keys.Keys = append(keys.Keys, info)
	}

	return s.store(keys)
}

// Lookup returns the key stored for addr, if any.
func (s *Store) Lookup(addr btvirt.Address) ([16]byte, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var key [16]byte
	keys, err := s.load()
	if err != nil {
		return key, false, err
	}

	for _, k := range keys.Keys {
		if k.Address != addr.String() {
			continue
		}
		raw, err := hex.DecodeString(k.LinkKey)
		if err != nil {
			return key, false, errors.Wrap(err, "invalid link key in store")
		}
		if len(raw) != len(key) {
			return key, false, errors.Errorf("link key for %s has %d bytes", addr, len(raw))
		}
		copy(key[:], raw)
		return key, true, nil
	}
	return key, false, nil
}

// Delete forgets the key stored for addr.
func (s *Store) Delete(addr btvirt.Address) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys, err := s.load()
	if err != nil {
		return err
	}

	for i, k := range keys.Keys {
		if k.Address == addr.String() {
			keys.Keys = append(keys.Keys[:i], keys.Keys[i+1:]...)
			return s.store(keys)
		}
	}
	return nil
}

// Clear removes the backing file.
func (s *Store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := os.Remove(s.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) load() (*keyFile, error) {
	var keys keyFile

	if _, err := os.Stat(s.filename); os.IsNotExist(err) {
		return &keys, nil
	}

	data, err := ioutil.ReadFile(s.filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key store")
	}
	if len(data) > 0 {
		if err := jsoniter.Unmarshal(data, &keys); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal key store")
		}
	}
	return &keys, nil
}

func (s *Store) store(keys *keyFile) error {
	out, err := jsoniter.Marshal(keys)
	if err != nil {
		return errors.Wrap(err, "failed to marshal key store")
	}
	if err := ioutil.WriteFile(s.filename, out, 0644); err != nil {
		return errors.Wrap(err, "failed to write key store")
	}
	return nil
}
