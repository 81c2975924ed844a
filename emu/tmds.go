package emu

import "math/bits"

// TMDS control symbols, indexed by (vsync level << 1) | hsync level.
const (
	tmdsCtrl00 = 0x354
	tmdsCtrl01 = 0x0ab
	tmdsCtrl10 = 0x154
	tmdsCtrl11 = 0x2ab
)

var tmdsCtrl = [4]uint16{tmdsCtrl00, tmdsCtrl01, tmdsCtrl10, tmdsCtrl11}

// Lane 0 carries blue and the sync control bits, lane 1 green, lane 2 red.
const laneBits = 10

// packLanes combines three 10-bit symbols into the word emitted for one
// pixel clock.
func packLanes(l0, l1, l2 uint16) uint32 {
	return uint32(l0) | uint32(l1)<<laneBits | uint32(l2)<<(2*laneBits)
}

// unpackLanes splits a symbol word into its three lane symbols.
func unpackLanes(w uint32) (l0, l1, l2 uint16) {
	return uint16(w & 0x3ff), uint16((w >> laneBits) & 0x3ff), uint16((w >> (2 * laneBits)) & 0x3ff)
}

// syncWord returns the control word for the given sync line levels. Both
// syncs are active low in this mode, so vHigh/hHigh true means inactive.
func syncWord(vHigh, hHigh bool) uint32 {
	c := 0
	if vHigh {
		c |= 2
	}
	if hHigh {
		c |= 1
	}
	return packLanes(tmdsCtrl[c], tmdsCtrl00, tmdsCtrl00)
}

var (
	syncV0H0 = syncWord(false, false)
	syncV0H1 = syncWord(false, true)
	syncV1H0 = syncWord(true, false)
	syncV1H1 = syncWord(true, true)
)

// tmdsStage holds the transition-minimised 9-bit word for a data byte and
// the number of ones in its low 8 bits.
type tmdsStage struct {
	qm   uint16
	ones int8
}

var tmdsStages = func() (t [256]tmdsStage) {
	for d := range t {
		t[d] = minimiseTransitions(byte(d))
	}
	return t
}()

// tmdsDecode maps every 10-bit data symbol back to its byte; control
// symbols and symbols the encoder never produces map to -1. The output of
// the encoder only depends on the sign of the running disparity.
var tmdsDecode = func() (t [1024]int16) {
	for i := range t {
		t[i] = -1
	}
	for d := 0; d < 256; d++ {
		for _, cnt := range []int{-2, 0, 2} {
			enc := TMDSEncoder{cnt: cnt}
			t[enc.Encode(byte(d))] = int16(d)
		}
	}
	return t
}()

// tmdsPairs holds, for every byte value, two consecutive symbols emitted
// from a zero running disparity. Pixel doubled lines use them so each
// pixel costs one table lookup per lane.
var tmdsPairs = func() (t [256][2]uint16) {
	for d := range t {
		var enc TMDSEncoder
		t[d][0] = enc.Encode(byte(d))
		t[d][1] = enc.Encode(byte(d))
	}
	return t
}()

func minimiseTransitions(d byte) tmdsStage {
	n1 := bits.OnesCount8(d)
	xnor := n1 > 4 || (n1 == 4 && d&1 == 0)
	qm := uint16(d & 1)
	for i := 1; i < 8; i++ {
		prev := (qm >> (i - 1)) & 1
		bit := uint16(d>>i) & 1
		var q uint16
		if xnor {
			q = ^(prev ^ bit) & 1
		} else {
			q = prev ^ bit
		}
		qm |= q << i
	}
	if !xnor {
		qm |= 1 << 8
	}
	return tmdsStage{qm: qm, ones: int8(bits.OnesCount8(uint8(qm)))}
}

// TMDSEncoder is the 8b/10b encoder of one lane. It keeps the running
// disparity between calls; Reset clears it, as happens during every
// control period.
type TMDSEncoder struct {
	cnt int
}

// Reset clears the running disparity.
func (e *TMDSEncoder) Reset() {
	e.cnt = 0
}

// Encode returns the 10-bit symbol for d.
func (e *TMDSEncoder) Encode(d byte) uint16 {
	st := tmdsStages[d]
	qm := st.qm
	n1 := int(st.ones)
	n0 := 8 - n1
	qm8 := int(qm>>8) & 1
	low := qm & 0xff

	var out uint16
	switch {
	case e.cnt == 0 || n1 == n0:
		if qm8 == 1 {
			out = 1<<8 | low
			e.cnt += n1 - n0
		} else {
			out = 1<<9 | (^low & 0xff)
			e.cnt += n0 - n1
		}
	case (e.cnt > 0 && n1 > n0) || (e.cnt < 0 && n0 > n1):
		out = 1<<9 | uint16(qm8)<<8 | (^low & 0xff)
		e.cnt += 2*qm8 + n0 - n1
	default:
		out = uint16(qm8)<<8 | low
		e.cnt += -2*(1-qm8) + n1 - n0
	}
	return out
}

// DecodeTMDS returns the byte carried by a data symbol.
func DecodeTMDS(sym uint16) (byte, bool) {
	v := tmdsDecode[sym&0x3ff]
	if v < 0 {
		return 0, false
	}
	return byte(v), true
}

// controlCode returns the two sync levels carried by a control symbol.
func controlCode(sym uint16) (c int, ok bool) {
	for i, s := range tmdsCtrl {
		if s == sym {
			return i, true
		}
	}
	return 0, false
}
