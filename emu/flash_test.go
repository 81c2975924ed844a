package emu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func TestFlash_StartsErased(t *testing.T) {
	fl := NewMemFlash(2 * FlashSectorSize)
	buf := make([]byte, 2*FlashSectorSize)
	if err := fl.ReadAt(buf, XIPBase); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("byte %d: got 0x%02X, want 0xFF", i, b)
		}
	}
}

func TestFlash_ProgramClearsBits(t *testing.T) {
	fl := NewMemFlash(FlashSectorSize)
	if err := fl.ProgramRange(XIPBase, []byte{0xF0}); err != nil {
		t.Fatal(err)
	}
	if err := fl.ProgramRange(XIPBase, []byte{0x3C}); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 1)
	fl.ReadAt(got, XIPBase)
	if got[0] != 0x30 {
		t.Errorf("programmed byte: got 0x%02X, want 0x30", got[0])
	}

	if err := fl.EraseRange(XIPBase, FlashSectorSize); err != nil {
		t.Fatal(err)
	}
	fl.ReadAt(got, XIPBase)
	if got[0] != 0xFF {
		t.Errorf("after erase: got 0x%02X, want 0xFF", got[0])
	}
}

func TestFlash_EraseAlignment(t *testing.T) {
	fl := NewMemFlash(2 * FlashSectorSize)
	if err := fl.EraseRange(XIPBase+1, FlashSectorSize); !errors.Is(err, ErrFlashAlignment) {
		t.Errorf("unaligned address: got %v, want ErrFlashAlignment", err)
	}
	if err := fl.EraseRange(XIPBase, 100); !errors.Is(err, ErrFlashAlignment) {
		t.Errorf("unaligned length: got %v, want ErrFlashAlignment", err)
	}
}

func TestFlash_Range(t *testing.T) {
	fl := NewMemFlash(FlashSectorSize)
	buf := make([]byte, 16)
	if err := fl.ReadAt(buf, XIPBase-1); !errors.Is(err, ErrFlashRange) {
		t.Errorf("below base: got %v, want ErrFlashRange", err)
	}
	if err := fl.ReadAt(buf, XIPBase+FlashSectorSize-8); !errors.Is(err, ErrFlashRange) {
		t.Errorf("past end: got %v, want ErrFlashRange", err)
	}
	if err := fl.ProgramRange(XIPBase+FlashSectorSize, []byte{0}); !errors.Is(err, ErrFlashRange) {
		t.Errorf("program past end: got %v, want ErrFlashRange", err)
	}
}

func TestFlash_FilePersists(t *testing.T) {
	fs := afero.NewMemMapFs()
	fl, err := OpenFileFlash(fs, "/flash.bin", FlashSectorSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := fl.ProgramRange(XIPBase+10, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	fl.Close()

	fl, err = OpenFileFlash(fs, "/flash.bin", FlashSectorSize)
	if err != nil {
		t.Fatal(err)
	}
	defer fl.Close()
	got := make([]byte, 3)
	fl.ReadAt(got, XIPBase+10)
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("reopened: got %v, want [1 2 3]", got)
	}
}

func TestFlash_OpenKeepsLargerImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/big.bin", make([]byte, 3*FlashSectorSize), 0o644)
	fl, err := OpenFileFlash(fs, "/big.bin", FlashSectorSize)
	if err != nil {
		t.Fatal(err)
	}
	defer fl.Close()
	if fl.Size() != 3*FlashSectorSize {
		t.Errorf("Size: got %d, want %d", fl.Size(), 3*FlashSectorSize)
	}
}

func TestWriteImage_ErasesCoveredSectors(t *testing.T) {
	fl := NewMemFlash(4 * FlashSectorSize)
	fl.ProgramRange(XIPBase, make([]byte, 4*FlashSectorSize))

	data := []byte{0xAA, 0xBB, 0xCC}
	addr := uint32(XIPBase + FlashSectorSize + 100)
	if err := WriteImage(fl, addr, data); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 3)
	fl.ReadAt(got, addr)
	if !bytes.Equal(got, data) {
		t.Errorf("image: got %v, want %v", got, data)
	}
	b := make([]byte, 1)
	fl.ReadAt(b, XIPBase+FlashSectorSize)
	if b[0] != 0xFF {
		t.Errorf("rest of sector: got 0x%02X, want 0xFF", b[0])
	}
	fl.ReadAt(b, XIPBase)
	if b[0] != 0x00 {
		t.Errorf("previous sector: got 0x%02X, want 0x00", b[0])
	}
}
