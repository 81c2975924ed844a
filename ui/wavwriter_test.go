package ui

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
	"github.com/user-none/dvines/emu"
)

func TestWavWriter_WritesStereo16(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWavWriter(fs, "/capture.wav")
	w.WriteAudio([]emu.StereoFrame{{L: 1, R: -1}, {L: 1000, R: -1000}})
	w.WriteAudio([]emu.StereoFrame{{L: 32767, R: -32768}})
	if w.Frames() != 3 {
		t.Errorf("Frames: got %d, want 3", w.Frames())
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := afero.ReadFile(fs, "/capture.wav")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 44+12 {
		t.Fatalf("file size: got %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("header: got %q %q", data[0:4], data[8:12])
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != 2 {
		t.Errorf("channels: got %d, want 2", ch)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != emu.AudioSampleRate {
		t.Errorf("sample rate: got %d, want %d", rate, emu.AudioSampleRate)
	}

	var want bytes.Buffer
	for _, v := range []int16{1, -1, 1000, -1000, 32767, -32768} {
		binary.Write(&want, binary.LittleEndian, v)
	}
	if got := data[len(data)-12:]; !bytes.Equal(got, want.Bytes()) {
		t.Errorf("samples: got %v, want %v", got, want.Bytes())
	}
}

func TestWavWriter_Empty(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWavWriter(fs, "/empty.wav")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/empty.wav"); !ok {
		t.Error("no file written")
	}
}
