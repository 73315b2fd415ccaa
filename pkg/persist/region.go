package persist

import (
	"errors"
	"os"
	"sync"
)

// Size is the size of the non-volatile region in bytes.
const Size = 7

// Region is a small non-volatile memory area.
type Region interface {
	ReadRegion() ([]byte, error)
	WriteRegion([]byte) error
}

// MemRegion is a Region in memory.
type MemRegion struct {
	lock sync.Mutex
	data []byte
}

// ReadRegion implements Region.
func (r *MemRegion) ReadRegion() ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]byte, Size)
	copy(out, r.data)
	return out, nil
}

// WriteRegion implements Region.
func (r *MemRegion) WriteRegion(p []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.data = append(r.data[:0], p...)
	return nil
}

// FileRegion keeps the region in a file. A missing file reads as erased.
type FileRegion struct {
	Path string
}

// ReadRegion implements Region.
func (r *FileRegion) ReadRegion() ([]byte, error) {
	out := make([]byte, Size)
	data, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	copy(out, data)
	return out, nil
}

// WriteRegion implements Region.
func (r *FileRegion) WriteRegion(p []byte) error {
	f, err := os.OpenFile(r.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err = f.Write(p); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
