package main

import (
	"github.com/user-none/dvines/adapter"
	libretro "github.com/user-none/eblitui/libretro"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadA, BitID: 4},      // A
		{RetroID: libretro.JoypadB, BitID: 5},      // B
		{RetroID: libretro.JoypadSelect, BitID: 6}, // Select
		{RetroID: libretro.JoypadStart, BitID: 7},  // Start
	})
}

func main() {}
