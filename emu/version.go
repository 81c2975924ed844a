package emu

// Core identity reported to front-ends.
const (
	Name    = "dvines"
	Version = "0.1.0"
)
