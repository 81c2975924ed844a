package emu

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// Flash geometry. Addresses are execute-in-place addresses starting at
// XIPBase.
const (
	XIPBase          = 0x10000000
	FlashSectorSize  = 4096
	DefaultFlashSize = 16 << 20
)

var (
	ErrFlashRange     = errors.New("flash access out of range")
	ErrFlashAlignment = errors.New("flash erase not sector aligned")
)

// Flash is the storage the console boots from: ROM images and save RAM
// slots live in it.
type Flash interface {
	ReadAt(p []byte, addr uint32) error

	// EraseRange sets a sector aligned range to 0xFF.
	EraseRange(addr uint32, n int) error

	// ProgramRange clears bits: every byte becomes old & new.
	ProgramRange(addr uint32, data []byte) error

	Size() int
}

// FileFlash is a Flash backed by an image file.
type FileFlash struct {
	mu   sync.Mutex
	f    afero.File
	size int
}

// OpenFileFlash opens the image at path on fs, creating it or extending
// it with erased sectors up to size bytes.
func OpenFileFlash(fs afero.Fs, path string, size int) (*FileFlash, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat flash image: %w", err)
	}
	if cur := int(st.Size()); cur < size {
		if _, err := f.WriteAt(erased(size-cur), int64(cur)); err != nil {
			f.Close()
			return nil, fmt.Errorf("extend flash image: %w", err)
		}
	} else {
		size = cur
	}
	return &FileFlash{f: f, size: size}, nil
}

// NewMemFlash returns an erased in-memory flash of size bytes.
func NewMemFlash(size int) *FileFlash {
	fl, err := OpenFileFlash(afero.NewMemMapFs(), "flash.bin", size)
	if err != nil {
		panic(err)
	}
	return fl
}

func erased(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}

// Size implements Flash.
func (fl *FileFlash) Size() int {
	return fl.size
}

func (fl *FileFlash) offset(addr uint32, n int) (int64, error) {
	if addr < XIPBase {
		return 0, fmt.Errorf("%w: 0x%08X", ErrFlashRange, addr)
	}
	off := int64(addr - XIPBase)
	if n < 0 || off+int64(n) > int64(fl.size) {
		return 0, fmt.Errorf("%w: 0x%08X+%d", ErrFlashRange, addr, n)
	}
	return off, nil
}

// ReadAt implements Flash.
func (fl *FileFlash) ReadAt(p []byte, addr uint32) error {
	off, err := fl.offset(addr, len(p))
	if err != nil {
		return err
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if _, err := fl.f.ReadAt(p, off); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read flash: %w", err)
	}
	return nil
}

// EraseRange implements Flash.
func (fl *FileFlash) EraseRange(addr uint32, n int) error {
	off, err := fl.offset(addr, n)
	if err != nil {
		return err
	}
	if off%FlashSectorSize != 0 || n%FlashSectorSize != 0 {
		return fmt.Errorf("%w: 0x%08X+%d", ErrFlashAlignment, addr, n)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if _, err := fl.f.WriteAt(erased(n), off); err != nil {
		return fmt.Errorf("erase flash: %w", err)
	}
	return nil
}

// ProgramRange implements Flash.
func (fl *FileFlash) ProgramRange(addr uint32, data []byte) error {
	off, err := fl.offset(addr, len(data))
	if err != nil {
		return err
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	cur := make([]byte, len(data))
	if _, err := fl.f.ReadAt(cur, off); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("program flash: %w", err)
	}
	for i := range cur {
		cur[i] &= data[i]
	}
	if _, err := fl.f.WriteAt(cur, off); err != nil {
		return fmt.Errorf("program flash: %w", err)
	}
	return nil
}

// Sync flushes the image to its file.
func (fl *FileFlash) Sync() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.f.Sync()
}

// Close closes the image.
func (fl *FileFlash) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.f.Close()
}

// WriteImage programs data at addr, erasing the sectors it covers first.
// It is how ROM images are placed into flash.
func WriteImage(fl Flash, addr uint32, data []byte) error {
	start := addr &^ (FlashSectorSize - 1)
	end := (int(addr-start) + len(data) + FlashSectorSize - 1) &^ (FlashSectorSize - 1)
	if err := fl.EraseRange(start, end); err != nil {
		return err
	}
	return fl.ProgramRange(addr, data)
}
