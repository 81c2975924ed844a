package emu

import (
	"bytes"
	"errors"
	"fmt"
)

// iNES layout.
const (
	inesHeaderSize  = 16
	inesTrainerSize = 512
	prgBankSize     = 0x4000
	chrBankSize     = 0x2000

	// The trainer is mapped at $7000, 0x1000 into save RAM.
	trainerSRAMOffset = 0x1000
)

var inesMagic = []byte("NES\x1a")

var (
	ErrBadMagic     = errors.New("not an iNES image")
	ErrTruncatedROM = errors.New("iNES image truncated")
)

// Mirroring is the nametable arrangement declared by the header.
type Mirroring int

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorFourScreen
)

// Cartridge is a parsed iNES image. PRG, CHR and Trainer alias the image
// passed to ParseROM.
type Cartridge struct {
	Mapper    int
	Mirroring Mirroring
	Battery   bool

	PRG     []byte
	CHR     []byte
	Trainer []byte
}

// HasMagic reports whether image starts with the iNES signature.
func HasMagic(image []byte) bool {
	return len(image) >= len(inesMagic) && bytes.Equal(image[:len(inesMagic)], inesMagic)
}

// ImageSize returns the number of bytes an iNES image occupies according
// to its header.
func ImageSize(header []byte) (int, error) {
	if len(header) < inesHeaderSize {
		return 0, fmt.Errorf("%w: header is %d bytes", ErrTruncatedROM, len(header))
	}
	if !HasMagic(header) {
		return 0, ErrBadMagic
	}
	n := inesHeaderSize + int(header[4])*prgBankSize + int(header[5])*chrBankSize
	if header[6]&0x04 != 0 {
		n += inesTrainerSize
	}
	return n, nil
}

// ParseROM validates the header and splits the image into its windows.
// On error nothing is returned.
func ParseROM(image []byte) (*Cartridge, error) {
	size, err := ImageSize(image)
	if err != nil {
		return nil, err
	}
	if len(image) < size {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedROM, size, len(image))
	}

	flags6, flags7 := image[6], image[7]
	c := &Cartridge{
		Mapper:  int(flags6>>4) | int(flags7&0xF0),
		Battery: flags6&0x02 != 0,
	}
	switch {
	case flags6&0x08 != 0:
		c.Mirroring = MirrorFourScreen
	case flags6&0x01 != 0:
		c.Mirroring = MirrorVertical
	}

	p := image[inesHeaderSize:]
	if flags6&0x04 != 0 {
		c.Trainer = p[:inesTrainerSize]
		p = p[inesTrainerSize:]
	}
	prg := int(image[4]) * prgBankSize
	c.PRG = p[:prg]
	p = p[prg:]
	if chr := int(image[5]) * chrBankSize; chr > 0 {
		c.CHR = p[:chr]
	}
	return c, nil
}

// LoadSRAM clears sram and places the trainer, if any.
func (c *Cartridge) LoadSRAM(sram []byte) {
	clear(sram)
	if c.Trainer != nil {
		copy(sram[trainerSRAMOffset:], c.Trainer)
	}
}
