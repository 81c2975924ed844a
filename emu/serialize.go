package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "dvinesState\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// consoleStateSize is romIndex(2) + screenMode(1) + rapid(2) + sramWritten(1).
const consoleStateSize = 6

// StateEngine is an Engine whose state can be saved with the console.
type StateEngine interface {
	Engine
	StateSize() int
	SaveState(dst []byte) error
	LoadState(src []byte) error
}

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the save state size of a console running the
// test card engine.
func SerializeSize() int {
	return stateHeaderSize + consoleStateSize + SRAMSize + testCardStateSize
}

// SerializeSize returns the total size in bytes needed for a save state.
func (c *Console) SerializeSize() int {
	n := stateHeaderSize + consoleStateSize + SRAMSize
	if se, ok := c.engine.(StateEngine); ok {
		n += se.StateSize()
	}
	return n
}

// Serialize creates a save state and returns it as a byte slice.
func (c *Console) Serialize() ([]byte, error) {
	if c.cart == nil {
		return nil, ErrNoROM
	}
	data := make([]byte, c.SerializeSize())

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], c.romCRC)

	offset := c.serializeConsole(data, stateHeaderSize)

	copy(data[offset:], c.nvram.SRAM())
	offset += SRAMSize

	if se, ok := c.engine.(StateEngine); ok {
		if err := se.SaveState(data[offset:]); err != nil {
			return nil, err
		}
	}

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)
	return data, nil
}

// Deserialize restores console state from a save state byte slice. The
// ROM is not switched: the state must belong to the loaded one.
func (c *Console) Deserialize(data []byte) error {
	if err := c.VerifyState(data); err != nil {
		return err
	}

	offset := c.deserializeConsole(data, stateHeaderSize)

	copy(c.nvram.SRAM(), data[offset:offset+SRAMSize])
	offset += SRAMSize

	if se, ok := c.engine.(StateEngine); ok {
		if err := se.LoadState(data[offset:]); err != nil {
			return err
		}
	}
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (c *Console) VerifyState(data []byte) error {
	if c.cart == nil {
		return ErrNoROM
	}
	if len(data) < c.SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != c.romCRC {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

func (c *Console) serializeConsole(data []byte, offset int) int {
	binary.LittleEndian.PutUint16(data[offset:], uint16(c.selector.Index()))
	offset += 2

	data[offset] = uint8(c.sched.ScreenMode())
	offset++

	data[offset] = uint8(c.io.RapidFire(0))
	offset++
	data[offset] = uint8(c.io.RapidFire(1))
	offset++

	data[offset] = boolByte(c.nvram.Written())
	offset++

	return offset
}

func (c *Console) deserializeConsole(data []byte, offset int) int {
	// The ROM index is informational; the CRC already matched.
	offset += 2

	if m := ScreenMode(data[offset]); m >= 0 && m < screenModeCount {
		c.sched.SetScreenMode(m)
	}
	offset++

	c.io.setRapidFire(0, uint32(data[offset]))
	offset++
	c.io.setRapidFire(1, uint32(data[offset]))
	offset++

	if data[offset] != 0 {
		c.nvram.MarkWritten()
	}
	offset++

	return offset
}
