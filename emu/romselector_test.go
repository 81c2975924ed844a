package emu

import (
	"archive/tar"
	"bytes"
	"testing"
)

type tarEntry struct {
	name string
	data []byte
}

func makeTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func flashWith(t *testing.T, data []byte) *FileFlash {
	t.Helper()
	fl := NewMemFlash(2 << 20)
	if err := WriteImage(fl, ROMAddr, data); err != nil {
		t.Fatal(err)
	}
	return fl
}

func TestROMSelector_SingleImage(t *testing.T) {
	img := makeINES(1, 1, 0x02)
	s, err := NewROMSelector(flashWith(t, img), ROMAddr)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", s.Count())
	}
	id := s.Identity()
	if id.Addr != ROMAddr || id.Size != len(img) || !id.Battery {
		t.Errorf("Identity: got %+v", id)
	}
	if s.NVRAMSlot() != 0 {
		t.Errorf("NVRAMSlot: got %d, want 0", s.NVRAMSlot())
	}
	got, err := s.Current()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, img) {
		t.Error("Current does not match the stored image")
	}
}

func TestROMSelector_ErasedFlash(t *testing.T) {
	s, err := NewROMSelector(NewMemFlash(2<<20), ROMAddr)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count() != 0 {
		t.Errorf("Count: got %d, want 0", s.Count())
	}
	if s.Identity().Valid() {
		t.Error("Identity valid with no images")
	}
	if s.NVRAMSlot() != -1 {
		t.Errorf("NVRAMSlot: got %d, want -1", s.NVRAMSlot())
	}
	if _, err := s.Current(); err != ErrNoROM {
		t.Errorf("Current: got %v, want ErrNoROM", err)
	}
	s.Next()
	if s.Index() != 0 {
		t.Errorf("Index after Next: got %d, want 0", s.Index())
	}
}

func TestROMSelector_Archive(t *testing.T) {
	a := makeINES(1, 0, 0x00)
	b := makeINES(1, 1, 0x02)
	c := makeINES(2, 0, 0x02)
	arc := makeTar(t, []tarEntry{
		{"roms/alpha.nes", a},
		{"readme.txt", []byte("not a rom, just some notes")},
		{"roms/beta.nes", b},
		{"roms/gamma.nes", c},
	})
	s, err := NewROMSelector(flashWith(t, arc), ROMAddr)
	if err != nil {
		t.Fatal(err)
	}

	names := s.Names()
	want := []string{"alpha", "beta", "gamma"}
	if len(names) != len(want) {
		t.Fatalf("Names: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, names[i], want[i])
		}
	}

	slots := []int{-1, 0, 1}
	imgs := [][]byte{a, b, c}
	for i := range imgs {
		s.Select(i)
		if s.NVRAMSlot() != slots[i] {
			t.Errorf("%s slot: got %d, want %d", want[i], s.NVRAMSlot(), slots[i])
		}
		got, err := s.Current()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, imgs[i]) {
			t.Errorf("%s: image mismatch", want[i])
		}
		if s.Identity().Addr%512 != 0 {
			t.Errorf("%s: data at 0x%08X is not block aligned", want[i], s.Identity().Addr)
		}
	}
}

func TestROMSelector_Wraps(t *testing.T) {
	arc := makeTar(t, []tarEntry{
		{"a.nes", makeINES(1, 0, 0)},
		{"b.nes", makeINES(1, 0, 0)},
		{"c.nes", makeINES(1, 0, 0)},
	})
	s, err := NewROMSelector(flashWith(t, arc), ROMAddr)
	if err != nil {
		t.Fatal(err)
	}
	s.Prev()
	if s.Index() != 2 {
		t.Errorf("Prev from 0: got %d, want 2", s.Index())
	}
	s.Next()
	if s.Index() != 0 {
		t.Errorf("Next from 2: got %d, want 0", s.Index())
	}
	s.Select(7)
	if s.Index() != 1 {
		t.Errorf("Select(7): got %d, want 1", s.Index())
	}
}

func TestROMSelector_CachesImages(t *testing.T) {
	img := makeINES(1, 0, 0)
	fl := flashWith(t, img)
	s, err := NewROMSelector(fl, ROMAddr)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := s.Current()

	// Overwriting flash is not seen until the cache entry is evicted.
	fl.EraseRange(ROMAddr, FlashSectorSize)
	second, _ := s.Current()
	if !bytes.Equal(first, second) {
		t.Error("Current reread flash instead of using the cache")
	}
}

func TestROMSelector_BaseOutOfRange(t *testing.T) {
	if _, err := NewROMSelector(NewMemFlash(FlashSectorSize), ROMAddr); err == nil {
		t.Error("ROM area past end of flash: want error")
	}
}
