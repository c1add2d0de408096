// audio_interfaces.go - Audio output backend interface

package main

// AudioOutput is implemented by every device host backend (oto, portaudio,
// headless). The backend pulls blocks from the engine's RenderBlock; the
// engine never calls into the device except through this interface.
type AudioOutput interface {
	// Start begins pulling audio from the engine
	Start() error
	// Stop pauses the device without releasing it
	Stop()
	// Close releases the device
	Close()
	// IsStarted returns true while the device is running
	IsStarted() bool
}
