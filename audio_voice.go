// audio_voice.go - Subtractive synth voice pool and per-sample synthesis

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

import "math"

const (
	MAX_TONE_VOICES = 64

	// Envelope convergence threshold for the exponential release stage.
	ENV_FLOOR = 1e-4

	// Fixed headroom applied to every tone voice before the mix bus.
	TONE_HEADROOM = 0.2
)

const (
	WAVE_SINE = iota
	WAVE_SAW
	WAVE_SQUARE
	WAVE_TRIANGLE
)

// waveformFromTag maps the protocol's waveform names onto oscillator ids.
func waveformFromTag(tag string) (int, bool) {
	switch tag {
	case "sine":
		return WAVE_SINE, true
	case "saw":
		return WAVE_SAW, true
	case "square":
		return WAVE_SQUARE, true
	case "triangle":
		return WAVE_TRIANGLE, true
	}
	return 0, false
}

// Instrument is the synthesis patch shared by every voice started under its
// id. Envelope times are in seconds, sustain in [0,1].
type Instrument struct {
	typ      string
	gain     float32
	attack   float32
	decay    float32
	sustain  float32
	release  float32
	fm       float32
	waveform int
}

func defaultInstrument(typ string) Instrument {
	if typ == "" {
		typ = "piano"
	}
	return Instrument{
		typ:     typ,
		gain:    1.0,
		attack:  0.003,
		decay:   0.12,
		sustain: 0.7,
		release: 0.2,
	}
}

// ToneVoice is one sounding synth note. Slots live inside the pool array and
// are reused in place; nothing here allocates during rendering.
type ToneVoice struct {
	active    bool
	releasing bool

	instID string
	mixCh  int
	note   int

	velocity float32
	gain     float32

	attack   float32
	decay    float32
	sustain  float32
	release  float32
	waveform int

	ageSamples int
	env        float32

	phase    float64
	phaseInc float64
}

// nextSample advances the envelope and oscillator by one sample and returns
// the voice output before routing gain. Deactivates itself when the release
// stage converges.
func (v *ToneVoice) nextSample(sr float64) float32 {
	atkS := envSamples(v.attack, sr)
	decS := envSamples(v.decay, sr)

	if !v.releasing {
		switch {
		case v.ageSamples < atkS:
			v.env = float32(v.ageSamples) / float32(atkS)
		case v.ageSamples < atkS+decS:
			t := float32(v.ageSamples-atkS) / float32(decS)
			v.env = 1 - (1-v.sustain)*t
		default:
			v.env = v.sustain
		}
	} else {
		relS := envSamples(v.release, sr)
		mul := float32(math.Exp(math.Log(ENV_FLOOR) / float64(relS)))
		v.env *= mul
		if v.env < ENV_FLOOR {
			v.active = false
			return 0
		}
	}

	var sig float32
	switch v.waveform {
	case WAVE_SAW:
		sig = float32(2*(v.phase/(2*math.Pi)) - 1)
	case WAVE_SQUARE:
		if v.phase < math.Pi {
			sig = 1
		} else {
			sig = -1
		}
	case WAVE_TRIANGLE:
		sig = float32(2*math.Abs(2*(v.phase/(2*math.Pi))-1) - 1)
	default:
		sig = float32(math.Sin(v.phase))
	}

	v.phase += v.phaseInc
	if v.phase >= 2*math.Pi {
		v.phase -= 2 * math.Pi
	}
	v.ageSamples++

	return sig * v.velocity * v.gain * v.env * TONE_HEADROOM
}

func envSamples(seconds float32, sr float64) int {
	s := int(math.Round(float64(seconds) * sr))
	if s < 1 {
		s = 1
	}
	return s
}

// tonePool is the fixed-capacity voice array. The backing array never grows
// past MAX_TONE_VOICES, so rendering never reallocates.
type tonePool struct {
	voices []ToneVoice
}

func newTonePool() *tonePool {
	return &tonePool{voices: make([]ToneVoice, 0, MAX_TONE_VOICES)}
}

// start allocates a voice for the note. A note already sounding on the same
// (instrument, channel, key) retriggers in place: the release flag clears
// and the velocity updates, keeping phase and envelope continuous.
func (p *tonePool) start(inst *Instrument, instID string, mixCh, note int, velocity float32, sr float64) {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	if mixCh < 1 {
		mixCh = 1
	}

	for i := range p.voices {
		v := &p.voices[i]
		if v.active && v.instID == instID && v.mixCh == mixCh && v.note == note {
			v.releasing = false
			v.velocity = velocity
			return
		}
	}

	hz := 440.0 * math.Pow(2, float64(note-69)/12.0)
	nv := ToneVoice{
		active:   true,
		instID:   instID,
		mixCh:    mixCh,
		note:     note,
		velocity: velocity,
		gain:     inst.gain,
		attack:   inst.attack,
		decay:    inst.decay,
		sustain:  inst.sustain,
		release:  inst.release,
		waveform: inst.waveform,
		phaseInc: 2 * math.Pi * hz / math.Max(1, sr),
	}

	for i := range p.voices {
		if !p.voices[i].active {
			p.voices[i] = nv
			return
		}
	}
	if len(p.voices) < MAX_TONE_VOICES {
		p.voices = append(p.voices, nv)
	}
	// Pool full: the request is dropped silently.
}

func (p *tonePool) stop(instID string, mixCh, note int) {
	for i := range p.voices {
		v := &p.voices[i]
		if v.active && v.instID == instID && v.mixCh == mixCh && v.note == note {
			v.releasing = true
		}
	}
}

func (p *tonePool) panic() {
	for i := range p.voices {
		p.voices[i].active = false
	}
}

func (p *tonePool) activeCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}
