// audio_sampler_test.go - Sampler rate math, slices, programs and lifecycle

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
	"testing"
)

func impulseSample(frames int, sr float64) *Sample {
	data := make([]float32, frames)
	for i := range data {
		data[i] = 1
	}
	return &Sample{sampleRate: sr, data: [][]float32{data}}
}

func stereoSample(frames int, sr float64) *Sample {
	l := make([]float32, frames)
	r := make([]float32, frames)
	for i := range l {
		l[i] = 0.5
		r[i] = -0.5
	}
	return &Sample{sampleRate: sr, data: [][]float32{l, r}}
}

func countVoiceFrames(sv *SamplerVoice) int {
	n := 0
	for sv.active {
		if _, _, ok := sv.nextSample(); !ok {
			break
		}
		n++
		if n > 1<<22 {
			break
		}
	}
	return n
}

func TestSampler_VinylAtRootPlaysSliceExactly(t *testing.T) {
	// A 100-frame click at the engine rate, triggered at its root, must
	// produce exactly 100 output frames and deactivate (scenario: vinyl,
	// note == rootMidi, matching rates).
	s := impulseSample(100, 48000)
	note, root := 60, 60
	msg := &samplerTriggerMsg{SampleID: "k", Note: &note, RootMidi: &root, Mode: "vinyl"}

	sv := buildSamplerVoice(msg, s, 48000, 120)
	if math.Abs(sv.rate-1) > 1e-12 {
		t.Fatalf("rate = %g, want 1", sv.rate)
	}

	got := countVoiceFrames(&sv)
	if got < 99 || got > 100 {
		t.Fatalf("voice produced %d frames, want 100 +-1", got)
	}
	if sv.active {
		t.Fatal("voice still active past the slice end")
	}
}

func TestSampler_VinylSampleRateConversion(t *testing.T) {
	// 44.1k source at a 48k engine: the slice stretches by 48/44.1.
	s := impulseSample(4410, 44100)
	note, root := 60, 60
	msg := &samplerTriggerMsg{SampleID: "k", Note: &note, RootMidi: &root, Mode: "vinyl"}

	sv := buildSamplerVoice(msg, s, 48000, 120)
	got := countVoiceFrames(&sv)
	want := int(float64(4410) * 48000 / 44100)
	if got < want-1 || got > want+1 {
		t.Fatalf("voice produced %d frames, want %d +-1", got, want)
	}
}

func TestSampler_PitchPreservedAcrossEngineRates(t *testing.T) {
	// The perceived pitch is rate * engineSr in source frames per second;
	// it must not depend on the engine rate.
	s := impulseSample(48000, 48000)
	note, root := 67, 60
	msg := &samplerTriggerMsg{SampleID: "k", Note: &note, RootMidi: &root, Mode: "vinyl"}

	at48 := buildSamplerVoice(msg, s, 48000, 120)
	at44 := buildSamplerVoice(msg, s, 44100, 120)

	speed48 := at48.rate * 48000
	speed44 := at44.rate * 44100
	if math.Abs(speed48-speed44) > 1e-6 {
		t.Fatalf("source speed differs across engine rates: %g vs %g", speed48, speed44)
	}
}

func TestSampler_FitDurationEndsOnTime(t *testing.T) {
	const engineSr = 48000.0
	cases := []struct {
		name string
		msg  samplerTriggerMsg
		want int
	}{
		{
			name: "explicit durationSec",
			msg:  samplerTriggerMsg{Mode: "fit_duration", DurationSec: f64(0.5), EndNorm: f64(0.5)},
			want: 24000,
		},
		{
			name: "patternSteps at 16 per beat",
			msg:  samplerTriggerMsg{Mode: "fit_duration", PatternSteps: f64(16), Bpm: f64(120), EndNorm: f64(0.5)},
			want: 24000, // one beat at 120 BPM
		},
		{
			name: "patternBeats",
			msg:  samplerTriggerMsg{Mode: "fit_duration", PatternBeats: f64(2), Bpm: f64(120), EndNorm: f64(0.5)},
			want: 48000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := impulseSample(24000, 48000)
			sv := buildSamplerVoice(&tc.msg, s, engineSr, 120)
			got := countVoiceFrames(&sv)
			if got < tc.want-2 || got > tc.want+2 {
				t.Fatalf("playback spanned %d frames, want %d +-2", got, tc.want)
			}
		})
	}
}

func TestSampler_FitDurationVinylAppliesPitch(t *testing.T) {
	s := impulseSample(12000, 48000)
	note, root := 72, 60
	plain := samplerTriggerMsg{Mode: "fit_duration", DurationSec: f64(0.5), Note: &note, RootMidi: &root}
	vinyl := samplerTriggerMsg{Mode: "fit_duration_vinyl", DurationSec: f64(0.5), Note: &note, RootMidi: &root}

	rPlain := buildSamplerVoice(&plain, s, 48000, 120).rate
	rVinyl := buildSamplerVoice(&vinyl, s, 48000, 120).rate
	if math.Abs(rVinyl/rPlain-2) > 1e-9 {
		t.Fatalf("fit_duration_vinyl rate ratio %g, want 2 (one octave up)", rVinyl/rPlain)
	}
}

func TestSampler_SliceBounds(t *testing.T) {
	cases := []struct {
		startNorm, endNorm float64
		frames             int
		wantStart, wantEnd int
	}{
		{0, 1, 100, 0, 100},
		{0.25, 0.75, 100, 25, 75},
		{0.999, 1, 100, 98, 100},
		{0, 0, 100, 0, 1},
		{1, 1, 100, 98, 100},
		{-1, 2, 100, 0, 100},
	}
	for _, tc := range cases {
		start, end := sliceBounds(tc.startNorm, tc.endNorm, tc.frames)
		if start != tc.wantStart || end != tc.wantEnd {
			t.Errorf("sliceBounds(%g, %g, %d) = [%d, %d), want [%d, %d)",
				tc.startNorm, tc.endNorm, tc.frames, start, end, tc.wantStart, tc.wantEnd)
		}
	}
}

func TestSampler_StereoAndMonoInterpolation(t *testing.T) {
	mono := impulseSample(64, 48000)
	note := 60
	msg := &samplerTriggerMsg{Note: &note, RootMidi: &note}

	sv := buildSamplerVoice(msg, mono, 48000, 120)
	l, r, ok := sv.nextSample()
	if !ok || l != r {
		t.Fatalf("mono source must duplicate to both sides: %g/%g", l, r)
	}

	st := stereoSample(64, 48000)
	sv = buildSamplerVoice(msg, st, 48000, 120)
	l, r, ok = sv.nextSample()
	if !ok || l <= 0 || r >= 0 {
		t.Fatalf("stereo source lost its sides: %g/%g", l, r)
	}
}

func TestSampler_ReleaseFadeShortensTail(t *testing.T) {
	s := impulseSample(48000, 48000)
	note := 60
	msg := &samplerTriggerMsg{Note: &note, RootMidi: &note}

	p := newSamplerPool()
	sv := buildSamplerVoice(msg, s, 48000, 120)
	sv.instID = "prog"
	sv.mixCh = 1
	p.alloc(sv)

	p.stopMatching("prog", 1, 60)
	v := &p.voices[0]
	if !v.releasing || v.fadeOutRemaining != SAMPLE_FADE_SAMPLES {
		t.Fatal("stopMatching must arm the fade-out")
	}

	frames := countVoiceFrames(v)
	if frames != SAMPLE_FADE_SAMPLES {
		t.Fatalf("fade lasted %d frames, want %d", frames, SAMPLE_FADE_SAMPLES)
	}
}

func TestSampler_GainPanLaw(t *testing.T) {
	s := impulseSample(64, 48000)
	note := 60
	vel, gain, pan := 0.5, 2.0, 0.5
	msg := &samplerTriggerMsg{Note: &note, RootMidi: &note, Velocity: &vel, Gain: &gain, Pan: &pan}

	sv := buildSamplerVoice(msg, s, 48000, 120)
	g := float32(gain * vel)
	if sv.gainL != g*0.5 || sv.gainR != g*1.5 {
		t.Fatalf("pan law broken: gainL %g gainR %g", sv.gainL, sv.gainR)
	}
}

func TestProgram_BestMatchNearestKeyTieLower(t *testing.T) {
	pm := NewProgramMap()
	sLow := impulseSample(10, 48000)
	sHigh := impulseSample(10, 48000)
	pm.Put("p", map[int]*Sample{58: sLow, 62: sHigh})

	cases := []struct {
		note     int
		wantKey  int
		wantSame *Sample
	}{
		{58, 58, sLow},
		{57, 58, sLow},
		{63, 62, sHigh},
		{60, 58, sLow}, // equidistant: lower key wins
	}
	for _, tc := range cases {
		key, s, ok := pm.BestMatch("p", tc.note)
		if !ok || key != tc.wantKey || s != tc.wantSame {
			t.Errorf("BestMatch(%d) = key %d, want %d", tc.note, key, tc.wantKey)
		}
	}
}

func TestProgram_VoicePitchCompensation(t *testing.T) {
	s := impulseSample(1000, 44100)
	v := makeProgramVoice("p", 65, 1, 0.8, s, 60, 48000)

	wantRate := math.Pow(2, 5.0/12.0) * 44100 / 48000
	if math.Abs(v.rate-wantRate) > 1e-12 {
		t.Fatalf("program rate %g, want %g", v.rate, wantRate)
	}
	if v.gainL != 0.8 || v.gainR != 0.8 {
		t.Fatalf("program velocity gain %g/%g", v.gainL, v.gainR)
	}
	if v.end != 1000 {
		t.Fatal("program voice must span the whole sample")
	}
}

func TestSampler_StoreDropKeepsPlayingVoiceAlive(t *testing.T) {
	e := newTestEngine(48000)
	s := impulseSample(8192, 48000)
	e.store.Put("s", s)

	vel := 1.0
	if err := e.TriggerSampler(&samplerTriggerMsg{SampleID: "s", Velocity: &vel}); err != nil {
		t.Fatal(err)
	}
	e.UnloadSample("s")

	// The voice holds its own handle; rendering continues after the drop.
	outL, _ := renderFrames(e, 2048, 512)
	var energy float64
	for _, v := range outL {
		energy += float64(v) * float64(v)
	}
	if energy == 0 {
		t.Fatal("voice went silent after its store entry was dropped")
	}

	if _, ok := e.store.Get("s"); ok {
		t.Fatal("store entry should be gone")
	}
}

func f64(v float64) *float64 { return &v }
