// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import "fmt"

// NumChannels is the number of scalar channels per sample.
const NumChannels = 6

// Channel identifies one scalar sensor axis within a window.
type Channel int

// Channel order is fixed: acceleration x, y, z then rotation rate x, y, z.
const (
	AccelX Channel = iota
	AccelY
	AccelZ
	RotX
	RotY
	RotZ
)

var channelNames = [NumChannels]string{"acc_x", "acc_y", "acc_z", "rot_x", "rot_y", "rot_z"}

func (c Channel) String() string {
	if c >= 0 && int(c) < NumChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Window is one fixed-length run of samples, stored per channel.
type Window struct {
	AccX []float64 `json:"acc_x"`
	AccY []float64 `json:"acc_y"`
	AccZ []float64 `json:"acc_z"`
	RotX []float64 `json:"rot_x"`
	RotY []float64 `json:"rot_y"`
	RotZ []float64 `json:"rot_z"`
}

// NewWindow allocates a zeroed window of the given length.
func NewWindow(size int) *Window {
	return &Window{
		AccX: make([]float64, size),
		AccY: make([]float64, size),
		AccZ: make([]float64, size),
		RotX: make([]float64, size),
		RotY: make([]float64, size),
		RotZ: make([]float64, size),
	}
}

// Len returns the window length.
func (w *Window) Len() int {
	return len(w.AccX)
}

// Channel returns the backing slice for c.
func (w *Window) Channel(c Channel) []float64 {
	switch c {
	case AccelX:
		return w.AccX
	case AccelY:
		return w.AccY
	case AccelZ:
		return w.AccZ
	case RotX:
		return w.RotX
	case RotY:
		return w.RotY
	case RotZ:
		return w.RotZ
	}
	return nil
}

// Features returns the six channel values at step i in channel order.
func (w *Window) Features(i int) [NumChannels]float64 {
	return [NumChannels]float64{w.AccX[i], w.AccY[i], w.AccZ[i], w.RotX[i], w.RotY[i], w.RotZ[i]}
}

// Clone returns a deep copy.
func (w *Window) Clone() *Window {
	c := NewWindow(w.Len())
	copy(c.AccX, w.AccX)
	copy(c.AccY, w.AccY)
	copy(c.AccZ, w.AccZ)
	copy(c.RotX, w.RotX)
	copy(c.RotY, w.RotY)
	copy(c.RotZ, w.RotZ)
	return c
}
