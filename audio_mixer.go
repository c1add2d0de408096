// audio_mixer.go - Channel strips, three-band EQ and level metering

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
	EQ_LOW_FREQ  = 120.0
	EQ_MID_FREQ  = 1200.0
	EQ_HIGH_FREQ = 8000.0

	EQ_SHELF_Q = 0.707
	EQ_MID_Q   = 0.9

	DEFAULT_CHANNEL_GAIN = 0.85
	DEFAULT_MASTER_GAIN  = 0.85
)

// MixerChannel holds one strip's control state. EQ gains are in decibels.
type MixerChannel struct {
	gain   float32
	pan    float32
	eqLow  float32
	eqMid  float32
	eqHigh float32
	mute   bool
	solo   bool
}

func defaultMixerChannel() MixerChannel {
	return MixerChannel{gain: DEFAULT_CHANNEL_GAIN}
}

// biquad is one direct-form-I second order IIR section. Coefficients are
// derived once per parameter change; state carries across blocks.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

func (f *biquad) reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}

func (f *biquad) setCoeffs(b0, b1, b2, a0, a1, a2 float64) {
	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = a1 / a0
	f.a2 = a2 / a0
}

// RBJ cookbook sections. gainDB is the shelf/peak gain, q the quality factor.

func (f *biquad) makeLowShelf(sr, freq, q, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sr
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)
	sqA := math.Sqrt(a)

	b0 := a * ((a + 1) - (a-1)*cosW + 2*sqA*alpha)
	b1 := 2 * a * ((a - 1) - (a+1)*cosW)
	b2 := a * ((a + 1) - (a-1)*cosW - 2*sqA*alpha)
	a0 := (a + 1) + (a-1)*cosW + 2*sqA*alpha
	a1 := -2 * ((a - 1) + (a+1)*cosW)
	a2 := (a + 1) + (a-1)*cosW - 2*sqA*alpha
	f.setCoeffs(b0, b1, b2, a0, a1, a2)
}

func (f *biquad) makeHighShelf(sr, freq, q, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sr
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)
	sqA := math.Sqrt(a)

	b0 := a * ((a + 1) + (a-1)*cosW + 2*sqA*alpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW)
	b2 := a * ((a + 1) + (a-1)*cosW - 2*sqA*alpha)
	a0 := (a + 1) - (a-1)*cosW + 2*sqA*alpha
	a1 := 2 * ((a - 1) - (a+1)*cosW)
	a2 := (a + 1) - (a-1)*cosW - 2*sqA*alpha
	f.setCoeffs(b0, b1, b2, a0, a1, a2)
}

func (f *biquad) makePeak(sr, freq, q, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sr
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosW
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW
	a2 := 1 - alpha/a
	f.setCoeffs(b0, b1, b2, a0, a1, a2)
}

// channelEQ cascades low shelf, peak and high shelf per stereo side.
type channelEQ struct {
	lowL, lowR   biquad
	midL, midR   biquad
	highL, highR biquad
}

func (eq *channelEQ) refresh(sr float64, mc *MixerChannel) {
	if sr < 22050 {
		sr = 22050
	}
	eq.lowL.makeLowShelf(sr, EQ_LOW_FREQ, EQ_SHELF_Q, float64(mc.eqLow))
	eq.lowR.makeLowShelf(sr, EQ_LOW_FREQ, EQ_SHELF_Q, float64(mc.eqLow))
	eq.midL.makePeak(sr, EQ_MID_FREQ, EQ_MID_Q, float64(mc.eqMid))
	eq.midR.makePeak(sr, EQ_MID_FREQ, EQ_MID_Q, float64(mc.eqMid))
	eq.highL.makeHighShelf(sr, EQ_HIGH_FREQ, EQ_SHELF_Q, float64(mc.eqHigh))
	eq.highR.makeHighShelf(sr, EQ_HIGH_FREQ, EQ_SHELF_Q, float64(mc.eqHigh))

	// A fresh state avoids parameter-change pops ringing through old tails.
	eq.lowL.reset()
	eq.lowR.reset()
	eq.midL.reset()
	eq.midR.reset()
	eq.highL.reset()
	eq.highR.reset()
}

func (eq *channelEQ) process(l, r float32) (float32, float32) {
	lo := eq.highL.process(eq.midL.process(eq.lowL.process(float64(l))))
	ro := eq.highR.process(eq.midR.process(eq.lowR.process(float64(r))))
	return float32(lo), float32(ro)
}

// meterBank accumulates per-channel and master peak/RMS. Peaks latch until
// the telemetry pump reports them; RMS finalizes once per block.
type meterBank struct {
	chPeakL, chPeakR []float32
	chRmsL, chRmsR   []float32
	chAccL, chAccR   []float64

	masterPeakL, masterPeakR float32
	masterRmsL, masterRmsR   float32
	masterAccL, masterAccR   float64
}

func (m *meterBank) resize(channels int) {
	m.chPeakL = resizeMeterSlice(m.chPeakL, channels)
	m.chPeakR = resizeMeterSlice(m.chPeakR, channels)
	m.chRmsL = resizeMeterSlice(m.chRmsL, channels)
	m.chRmsR = resizeMeterSlice(m.chRmsR, channels)
	m.chAccL = resizeMeterSlice(m.chAccL, channels)
	m.chAccR = resizeMeterSlice(m.chAccR, channels)
}

func resizeMeterSlice[T float32 | float64](s []T, n int) []T {
	if len(s) >= n {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

func (m *meterBank) accumulateChannel(ch int, l, r float32) {
	if al := abs32(l); al > m.chPeakL[ch] {
		m.chPeakL[ch] = al
	}
	if ar := abs32(r); ar > m.chPeakR[ch] {
		m.chPeakR[ch] = ar
	}
	m.chAccL[ch] += float64(l) * float64(l)
	m.chAccR[ch] += float64(r) * float64(r)
}

func (m *meterBank) accumulateMaster(l, r float32) {
	if al := abs32(l); al > m.masterPeakL {
		m.masterPeakL = al
	}
	if ar := abs32(r); ar > m.masterPeakR {
		m.masterPeakR = ar
	}
	m.masterAccL += float64(l) * float64(l)
	m.masterAccR += float64(r) * float64(r)
}

// finalizeBlock converts the squared-sum accumulators into block RMS and
// clears them for the next block.
func (m *meterBank) finalizeBlock(n int) {
	if n < 1 {
		n = 1
	}
	inv := 1.0 / float64(n)
	m.masterRmsL = float32(math.Sqrt(m.masterAccL * inv))
	m.masterRmsR = float32(math.Sqrt(m.masterAccR * inv))
	m.masterAccL, m.masterAccR = 0, 0

	for i := range m.chAccL {
		m.chRmsL[i] = float32(math.Sqrt(m.chAccL[i] * inv))
		m.chRmsR[i] = float32(math.Sqrt(m.chAccR[i] * inv))
		m.chAccL[i], m.chAccR[i] = 0, 0
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Mixer owns the channel strips, their EQ and effect chains, and the master
// section. All mutation happens under the engine's audio mutex.
type Mixer struct {
	channels []MixerChannel
	eq       []channelEQ
	fx       []fxChain
	masterFx fxChain

	masterGain float32
	crossfader float32

	meters meterBank
}

func NewMixer(channels int, sr float64) *Mixer {
	m := &Mixer{masterGain: DEFAULT_MASTER_GAIN}
	m.Resize(channels, sr)
	return m
}

// Resize grows or shrinks the strip array, preserving surviving channel
// state, and rebuilds EQ sections at the given sample rate.
func (m *Mixer) Resize(channels int, sr float64) {
	if channels < 1 {
		channels = 1
	}
	if channels > 64 {
		channels = 64
	}

	old := len(m.channels)
	if channels <= old {
		m.channels = m.channels[:channels]
		m.eq = m.eq[:channels]
		m.fx = m.fx[:channels]
	} else {
		for i := old; i < channels; i++ {
			m.channels = append(m.channels, defaultMixerChannel())
			m.eq = append(m.eq, channelEQ{})
			m.fx = append(m.fx, nil)
		}
	}
	m.meters.resize(channels)
	m.RefreshEQ(sr)
}

func (m *Mixer) RefreshEQ(sr float64) {
	for i := range m.channels {
		m.eq[i].refresh(sr, &m.channels[i])
	}
}

func (m *Mixer) anySolo() bool {
	for i := range m.channels {
		if m.channels[i].solo {
			return true
		}
	}
	return false
}

// clampChannel maps a 1-based voice routing index onto a valid strip.
func (m *Mixer) clampChannel(mixCh int) int {
	idx := mixCh - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.channels) {
		idx = len(m.channels) - 1
	}
	return idx
}

// audible reports whether the strip passes mute and the global solo predicate.
func (m *Mixer) audible(idx int, anySolo bool) bool {
	mc := &m.channels[idx]
	if mc.mute {
		return false
	}
	if anySolo && !mc.solo {
		return false
	}
	return true
}
