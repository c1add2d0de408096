//go:build headless

package main

// Headless builds run without a device; tests and CI drive RenderBlock
// directly.

type HeadlessOutput struct {
	started bool
}

func newDeviceOutput(e *Engine) (AudioOutput, error) {
	return &HeadlessOutput{}, nil
}

func (h *HeadlessOutput) Start() error {
	h.started = true
	return nil
}

func (h *HeadlessOutput) Stop() {
	h.started = false
}

func (h *HeadlessOutput) Close() {
	h.started = false
}

func (h *HeadlessOutput) IsStarted() bool {
	return h.started
}
