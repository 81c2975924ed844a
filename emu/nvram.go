package emu

import (
	"fmt"
	"log"
	"sync/atomic"
)

// ROMAddr is where the ROM area starts in flash. Save RAM slots are laid
// out downwards from it, one SRAMSize region per battery backed ROM.
const (
	ROMAddr  = 0x10080000
	SRAMSize = 0x2000
)

// Save slots are erased whole, so a sector must not span two of them.
var _ = [1]int{}[SRAMSize%FlashSectorSize]

// ComputeNVRAMAddress returns the flash address of the save RAM of rom in
// slot. It fails when no ROM is loaded, no slot is assigned or the slot
// would fall below the start of flash.
func ComputeNVRAMAddress(base uint32, rom ROMIdentity, slot int) (uint32, bool) {
	if !rom.Valid() || slot < 0 {
		return 0, false
	}
	off := uint64(SRAMSize) * uint64(slot+1)
	if off > uint64(base-XIPBase) {
		return 0, false
	}
	return base - uint32(off), true
}

// NVRAM holds the cartridge save RAM and persists it to its flash slot.
type NVRAM struct {
	flash Flash
	excl  *Exclusive
	base  uint32

	sram    [SRAMSize]byte
	written atomic.Bool

	rom  ROMIdentity
	slot int
}

// NewNVRAM creates save RAM backed by flash slots below base. Flash
// writes go through excl.
func NewNVRAM(flash Flash, excl *Exclusive, base uint32) *NVRAM {
	return &NVRAM{flash: flash, excl: excl, base: base, slot: -1}
}

// SRAM returns the save RAM the engine maps.
func (n *NVRAM) SRAM() []byte {
	return n.sram[:]
}

// Address returns the flash address of the bound slot.
func (n *NVRAM) Address() (uint32, bool) {
	return ComputeNVRAMAddress(n.base, n.rom, n.slot)
}

// MarkWritten records that the engine changed the save RAM.
func (n *NVRAM) MarkWritten() {
	n.written.Store(true)
}

// Written reports whether the save RAM changed since the last load or
// save.
func (n *NVRAM) Written() bool {
	return n.written.Load()
}

// Switch binds rom and slot and fills the save RAM for them: init, if
// set, prepares a blank RAM and the slot, if any, is read over it. On a
// flash error the save RAM and binding are left as they were.
func (n *NVRAM) Switch(rom ROMIdentity, slot int, init func([]byte)) error {
	var buf [SRAMSize]byte
	if init != nil {
		init(buf[:])
	}
	if addr, ok := ComputeNVRAMAddress(n.base, rom, slot); ok {
		log.Printf("load SRAM 0x%08X", addr)
		if err := n.flash.ReadAt(buf[:], addr); err != nil {
			return fmt.Errorf("load SRAM: %w", err)
		}
	}
	n.sram = buf
	n.rom, n.slot = rom, slot
	n.written.Store(false)
	return nil
}

// nvramState is a copy of the save RAM and its binding.
type nvramState struct {
	sram    [SRAMSize]byte
	written bool
	rom     ROMIdentity
	slot    int
}

func (n *NVRAM) snapshot() nvramState {
	return nvramState{sram: n.sram, written: n.written.Load(), rom: n.rom, slot: n.slot}
}

// restore puts back a snapshot, unsaved changes included.
func (n *NVRAM) restore(st nvramState) {
	n.sram = st.sram
	n.rom, n.slot = st.rom, st.slot
	n.written.Store(st.written)
}

// Save erases the bound slot and programs the save RAM into it. It is
// skipped when nothing was written or no slot is bound, and reports
// whether flash was touched.
func (n *NVRAM) Save() (bool, error) {
	if !n.written.Load() {
		log.Printf("SRAM not updated")
		return false, nil
	}
	addr, ok := n.Address()
	if !ok {
		return false, nil
	}

	var err error
	n.excl.Run(func() {
		log.Printf("write flash 0x%08X", addr-XIPBase)
		if err = n.flash.EraseRange(addr, SRAMSize); err != nil {
			return
		}
		err = n.flash.ProgramRange(addr, n.sram[:])
	})
	if err != nil {
		return false, fmt.Errorf("save SRAM: %w", err)
	}
	n.written.Store(false)
	return true, nil
}
