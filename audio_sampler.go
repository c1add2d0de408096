// audio_sampler.go - Sample store and pitch-shifting sampler voice pool

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
	"math"
	"strings"
)

const (
	MAX_SAMPLER_VOICES = 128

	// Default fade-out applied when a sampler voice is released.
	SAMPLE_FADE_SAMPLES = 256

	// Lowest permitted playback rate in source frames per output frame.
	MIN_PLAYBACK_RATE = 1e-4

	STEPS_PER_BEAT = 16
)

const (
	TRIGGER_MODE_VINYL              = "vinyl"
	TRIGGER_MODE_FIT_DURATION       = "fit_duration"
	TRIGGER_MODE_FIT_DURATION_VINYL = "fit_duration_vinyl"
)

// Sample is immutable decoded audio. Voices hold *Sample handles, so a store
// drop never frees frames a voice is still reading.
type Sample struct {
	sampleRate float64
	data       [][]float32 // one slice per source channel
}

func (s *Sample) Frames() int {
	if len(s.data) == 0 {
		return 0
	}
	return len(s.data[0])
}

func (s *Sample) Channels() int {
	return len(s.data)
}

// SampleStore is the content cache behind sampler.load/unload. Writes happen
// under the engine's audio mutex; reads on the audio thread happen while
// that mutex is already held for the block.
type SampleStore struct {
	entries map[string]*Sample
}

func NewSampleStore() *SampleStore {
	return &SampleStore{entries: make(map[string]*Sample)}
}

func (st *SampleStore) Get(id string) (*Sample, bool) {
	s, ok := st.entries[id]
	return s, ok
}

func (st *SampleStore) Put(id string, s *Sample) {
	st.entries[id] = s
}

func (st *SampleStore) Drop(id string) {
	delete(st.entries, id)
}

// SamplerVoice plays one slice of a Sample with linear interpolation. Slots
// are reused in place inside the pool array.
type SamplerVoice struct {
	active    bool
	releasing bool

	instID string
	note   int

	sample *Sample
	start  int
	end    int

	pos  float64
	rate float64

	gainL float32
	gainR float32
	mixCh int

	fadeOutTotal     int
	fadeOutRemaining int
}

// nextSample produces the next stereo pair and advances the read position.
// Returns ok=false once the voice has deactivated.
func (sv *SamplerVoice) nextSample() (l, r float32, ok bool) {
	s := sv.sample
	if s == nil {
		sv.active = false
		return 0, 0, false
	}

	ip := int(sv.pos)
	if ip >= sv.end || ip >= s.Frames()-1 {
		sv.active = false
		return 0, 0, false
	}

	fade := float32(1)
	if sv.releasing {
		if sv.fadeOutRemaining <= 0 {
			sv.active = false
			return 0, 0, false
		}
		total := sv.fadeOutTotal
		if total < 1 {
			total = 1
		}
		fade = float32(sv.fadeOutRemaining) / float32(total)
		sv.fadeOutRemaining--
	}

	frac := float32(sv.pos - float64(ip))
	left := s.data[0]
	inL := left[ip] + (left[ip+1]-left[ip])*frac
	inR := inL
	if s.Channels() > 1 {
		right := s.data[1]
		inR = right[ip] + (right[ip+1]-right[ip])*frac
	}

	sv.pos += sv.rate
	return inL * sv.gainL * fade, inR * sv.gainR * fade, true
}

type samplerPool struct {
	voices []SamplerVoice
}

func newSamplerPool() *samplerPool {
	return &samplerPool{voices: make([]SamplerVoice, 0, MAX_SAMPLER_VOICES)}
}

// alloc places the voice in the first inactive slot, growing to capacity.
// A full pool drops the trigger silently.
func (p *samplerPool) alloc(v SamplerVoice) {
	for i := range p.voices {
		if !p.voices[i].active {
			p.voices[i] = v
			return
		}
	}
	if len(p.voices) < MAX_SAMPLER_VOICES {
		p.voices = append(p.voices, v)
	}
}

func (p *samplerPool) stopMatching(instID string, mixCh, note int) {
	for i := range p.voices {
		sv := &p.voices[i]
		if sv.active && sv.instID == instID && sv.mixCh == mixCh && sv.note == note {
			sv.releasing = true
			sv.fadeOutTotal = SAMPLE_FADE_SAMPLES
			sv.fadeOutRemaining = sv.fadeOutTotal
		}
	}
}

func (p *samplerPool) panic() {
	for i := range p.voices {
		p.voices[i].active = false
	}
}

func (p *samplerPool) activeCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// sliceBounds converts normalized [0,1] slice points into frame indices,
// guaranteeing at least one playable frame.
func sliceBounds(startNorm, endNorm float64, frames int) (int, int) {
	startNorm = clampF(startNorm, 0, 1)
	endNorm = clampF(endNorm, 0, 1)

	maxStart := frames - 2
	if maxStart < 0 {
		maxStart = 0
	}
	start := int(math.Floor(startNorm * float64(frames)))
	if start < 0 {
		start = 0
	}
	if start > maxStart {
		start = maxStart
	}

	end := int(math.Ceil(endNorm * float64(frames)))
	if end < start+1 {
		end = start + 1
	}
	if end > frames {
		end = frames
	}
	return start, end
}

// triggerRate derives the playback rate for a sampler trigger: pitch ratio
// for vinyl, slice-over-duration for the fit modes, always compensated for
// the source/engine sample-rate difference.
func triggerRate(msg *samplerTriggerMsg, s *Sample, start, end int, engineSr, engineBpm float64) float64 {
	note := intOr(msg.Note, 60)
	root := intOr(msg.RootMidi, 60)
	pitchRatio := math.Pow(2, float64(note-root)/12.0)

	mode := strings.ToLower(msg.Mode)
	rate := pitchRatio

	if mode == TRIGGER_MODE_FIT_DURATION || mode == TRIGGER_MODE_FIT_DURATION_VINYL {
		durationSec := floatOr(msg.DurationSec, 0)
		if durationSec <= 0 {
			patternBeats := floatOr(msg.PatternBeats, 0)
			if steps := floatOr(msg.PatternSteps, 0); steps > 0 {
				patternBeats = steps / STEPS_PER_BEAT
			}
			reqBpm := math.Max(20, floatOr(msg.Bpm, engineBpm))
			if patternBeats > 0 {
				durationSec = (60.0 / reqBpm) * patternBeats
			}
		}
		if durationSec > 0 {
			sliceLen := float64(end - start)
			baseRate := sliceLen / math.Max(1, durationSec*math.Max(1, engineSr))
			if mode == TRIGGER_MODE_FIT_DURATION_VINYL {
				rate = baseRate * pitchRatio
			} else {
				rate = baseRate
			}
		}
	}

	rate *= s.sampleRate / math.Max(1, engineSr)
	if rate < MIN_PLAYBACK_RATE {
		rate = MIN_PLAYBACK_RATE
	}
	return rate
}

// buildSamplerVoice assembles the voice for a validated trigger. The sample
// has already been resolved from the store.
func buildSamplerVoice(msg *samplerTriggerMsg, s *Sample, engineSr, engineBpm float64) SamplerVoice {
	frames := s.Frames()
	start, end := sliceBounds(floatOr(msg.StartNorm, 0), floatOr(msg.EndNorm, 1), frames)

	vel := clampF(velocityOf(msg), 0, 1)
	gain := math.Max(0, floatOr(msg.Gain, 1))
	pan := clampF(floatOr(msg.Pan, 0), -1, 1)
	g := float32(gain * vel)

	mixCh := intOr(msg.MixCh, 1)
	if mixCh < 1 {
		mixCh = 1
	}

	return SamplerVoice{
		active: true,
		instID: "sampler",
		note:   intOr(msg.Note, 60),
		sample: s,
		start:  start,
		end:    end,
		pos:    float64(start),
		rate:   triggerRate(msg, s, start, end, engineSr, engineBpm),
		gainL:  g * float32(1-pan),
		gainR:  g * float32(1+pan),
		mixCh:  mixCh,

		fadeOutTotal: SAMPLE_FADE_SAMPLES,
	}
}

func velocityOf(msg *samplerTriggerMsg) float64 {
	if msg.Velocity != nil {
		return *msg.Velocity
	}
	if msg.Vel != nil {
		return *msg.Vel
	}
	return 0.85
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
