package emu

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNoROM = errors.New("no ROM selected")

// romCacheSize is how many raw images the selector keeps in memory.
const romCacheSize = 4

// ROMIdentity names one image in the ROM area.
type ROMIdentity struct {
	Index   int
	Name    string
	Addr    uint32
	Size    int
	Battery bool
}

// Valid reports whether the identity refers to an image.
func (id ROMIdentity) Valid() bool {
	return id.Size > 0
}

// ROMSelector enumerates the images stored in flash at the ROM area:
// either one iNES image or a tar archive of them.
type ROMSelector struct {
	flash Flash
	roms  []ROMIdentity
	slots []int
	cur   int
	cache *lru.Cache[int, []byte]
}

// NewROMSelector scans flash at base.
func NewROMSelector(flash Flash, base uint32) (*ROMSelector, error) {
	cache, err := lru.New[int, []byte](romCacheSize)
	if err != nil {
		return nil, err
	}
	s := &ROMSelector{flash: flash, cache: cache}
	if err := s.scan(base); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ROMSelector) scan(base uint32) error {
	if base < XIPBase || int(base-XIPBase) >= s.flash.Size() {
		return fmt.Errorf("%w: ROM area 0x%08X", ErrFlashRange, base)
	}
	avail := int64(s.flash.Size()) - int64(base-XIPBase)
	area := io.NewSectionReader(flashReaderAt{s.flash}, int64(base-XIPBase), avail)

	head := make([]byte, inesHeaderSize)
	if _, err := area.ReadAt(head, 0); err != nil {
		return fmt.Errorf("read ROM area: %w", err)
	}
	if HasMagic(head) {
		size, err := ImageSize(head)
		if err != nil {
			return err
		}
		s.add("rom.nes", base, size, head)
		return nil
	}

	cr := &countingReader{r: area}
	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Erased or foreign data: no ROMs, not an error.
			if len(s.roms) == 0 {
				return nil
			}
			return fmt.Errorf("scan ROM archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || hdr.Size < inesHeaderSize {
			continue
		}
		addr := base + uint32(cr.n)
		if _, err := io.ReadFull(tr, head); err != nil {
			return fmt.Errorf("scan ROM archive: %w", err)
		}
		if !HasMagic(head) {
			continue
		}
		s.add(path.Base(hdr.Name), addr, int(hdr.Size), head)
	}
	return nil
}

func (s *ROMSelector) add(name string, addr uint32, size int, head []byte) {
	id := ROMIdentity{
		Index:   len(s.roms),
		Name:    strings.TrimSuffix(name, path.Ext(name)),
		Addr:    addr,
		Size:    size,
		Battery: head[6]&0x02 != 0,
	}
	slot := -1
	if id.Battery {
		for _, r := range s.roms {
			if r.Battery {
				slot++
			}
		}
		slot++
	}
	s.roms = append(s.roms, id)
	s.slots = append(s.slots, slot)
}

// Count returns the number of images found.
func (s *ROMSelector) Count() int {
	return len(s.roms)
}

// Names returns the image names in flash order.
func (s *ROMSelector) Names() []string {
	out := make([]string, len(s.roms))
	for i, r := range s.roms {
		out[i] = r.Name
	}
	return out
}

// Index returns the selected image.
func (s *ROMSelector) Index() int {
	return s.cur
}

// Select chooses image i, wrapping around the list.
func (s *ROMSelector) Select(i int) {
	if n := len(s.roms); n > 0 {
		s.cur = ((i % n) + n) % n
	}
}

// Next selects the following image.
func (s *ROMSelector) Next() {
	s.Select(s.cur + 1)
}

// Prev selects the preceding image.
func (s *ROMSelector) Prev() {
	s.Select(s.cur - 1)
}

// Identity returns the selected image, or the zero identity when the
// area holds none.
func (s *ROMSelector) Identity() ROMIdentity {
	if len(s.roms) == 0 {
		return ROMIdentity{}
	}
	return s.roms[s.cur]
}

// NVRAMSlot returns the save slot of the selected image: its position
// among battery backed images, or -1.
func (s *ROMSelector) NVRAMSlot() int {
	if len(s.roms) == 0 {
		return -1
	}
	return s.slots[s.cur]
}

// Current returns the raw image of the selected ROM.
func (s *ROMSelector) Current() ([]byte, error) {
	id := s.Identity()
	if !id.Valid() {
		return nil, ErrNoROM
	}
	if img, ok := s.cache.Get(id.Index); ok {
		return img, nil
	}
	img := make([]byte, id.Size)
	if err := s.flash.ReadAt(img, id.Addr); err != nil {
		return nil, fmt.Errorf("read ROM %q: %w", id.Name, err)
	}
	s.cache.Add(id.Index, img)
	return img, nil
}

// flashReaderAt exposes flash offsets as an io.ReaderAt.
type flashReaderAt struct {
	fl Flash
}

func (r flashReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(r.fl.Size()) {
		return 0, io.EOF
	}
	n := len(p)
	var err error
	if rem := int64(r.fl.Size()) - off; int64(n) > rem {
		n = int(rem)
		err = io.EOF
	}
	if e := r.fl.ReadAt(p[:n], XIPBase+uint32(off)); e != nil {
		return 0, e
	}
	return n, err
}

// countingReader tracks the offset tar has consumed, which after Next is
// where the entry's data starts.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
