//go:build portaudio && !headless

// audio_backend_portaudio.go - PortAudio output backend

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/SaladeEngine
License: GPLv3 or later
*/

package main

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioOutput drives the engine from PortAudio's callback, which hands
// us planar float32 buffers directly.
type PortAudioOutput struct {
	stream  *portaudio.Stream
	started bool
	mutex   sync.Mutex
}

func newDeviceOutput(e *Engine) (AudioOutput, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	cfg := e.Config()
	numOut := cfg.NumOut
	if numOut < 1 {
		numOut = 2
	}

	stream, err := portaudio.OpenDefaultStream(0, numOut, cfg.SampleRate, cfg.BufferSize,
		func(out [][]float32) {
			if len(out) == 0 {
				return
			}
			e.RenderBlock(out, len(out[0]))
		})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &PortAudioOutput{stream: stream}, nil
}

func (p *PortAudioOutput) Start() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.started || p.stream == nil {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *PortAudioOutput) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.started && p.stream != nil {
		p.stream.Stop()
		p.started = false
	}
}

func (p *PortAudioOutput) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
		p.stream = nil
		portaudio.Terminate()
	}
	p.started = false
}

func (p *PortAudioOutput) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}
