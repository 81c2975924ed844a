// Package cli provides a command-line runner for the console.
// It handles input polling and shows the DVI output in a window without
// the full UI.
package cli

import (
	"context"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	emubridge "github.com/user-none/dvines/bridge/ebiten"
	"github.com/user-none/dvines/emu"
	"github.com/user-none/dvines/ui"
)

// Runner shows a console in a window. The console runs its producer and
// consumer goroutines on its own; the Ebiten thread only polls input and
// draws the latest decoded frame.
type Runner struct {
	console     *emu.Console
	display     *emubridge.Display
	audioPlayer *ui.AudioPlayer

	sharedInput       *ui.SharedInput
	sharedFramebuffer *ui.SharedFramebuffer

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewRunner starts c and returns a runner showing it. player may be nil;
// it must already be wired as the console's audio sink.
func NewRunner(c *emu.Console, player *ui.AudioPlayer) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		console:           c,
		display:           emubridge.NewDisplay(),
		audioPlayer:       player,
		sharedInput:       &ui.SharedInput{},
		sharedFramebuffer: ui.NewSharedFramebuffer(),
		cancel:            cancel,
		done:              make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		r.err = c.Run(ctx)
		if r.err != nil {
			log.Printf("console stopped: %v", r.err)
		}
	}()

	return r
}

// Close stops the console and cleans up the runner's resources.
func (r *Runner) Close() error {
	r.cancel()
	<-r.done

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
	r.display.Close()
	return r.err
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	select {
	case <-r.done:
		return ebiten.Termination
	default:
	}
	if !ebiten.IsFocused() {
		return nil
	}

	r.pollInputToShared()
	r.sharedInput.Apply(r.console.Port(0))
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	r.sharedFramebuffer.UpdateFrom(r.console)
	pixels, stride, height := r.sharedFramebuffer.Read()
	if height == 0 {
		return
	}
	r.display.DrawFramebuffer(screen, pixels, stride, height)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.display.Layout(outsideWidth, outsideHeight)
}

// pollInputToShared reads keyboard and gamepad input and writes to shared state.
func (r *Runner) pollInputToShared() {
	// Keyboard (WASD + arrows for movement, J/K for B/A, Backspace for
	// Select, Enter for Start)
	up := ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp)
	down := ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown)
	left := ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft)
	right := ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight)
	btnB := ebiten.IsKeyPressed(ebiten.KeyJ)
	btnA := ebiten.IsKeyPressed(ebiten.KeyK)
	selectBtn := ebiten.IsKeyPressed(ebiten.KeyBackspace) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	start := ebiten.IsKeyPressed(ebiten.KeyEnter)

	// Gamepad support (all connected gamepads)
	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}

		// D-pad
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftTop) {
			up = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftBottom) {
			down = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftLeft) {
			left = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftRight) {
			right = true
		}

		// Face buttons: B/Circle=A, A/Cross=B, Back=Select, Start=Start
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightRight) {
			btnA = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightBottom) {
			btnB = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonCenterLeft) {
			selectBtn = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonCenterRight) {
			start = true
		}

		// Left analog stick (with deadzone)
		const deadzone = 0.5
		axisX := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		axisY := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if axisX < -deadzone {
			left = true
		}
		if axisX > deadzone {
			right = true
		}
		if axisY < -deadzone {
			up = true
		}
		if axisY > deadzone {
			down = true
		}
	}

	r.sharedInput.Set(up, down, left, right, btnA, btnB, selectBtn, start)
}
