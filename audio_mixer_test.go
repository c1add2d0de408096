// audio_mixer_test.go - EQ sections, channel strips and meter accounting

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
	"math/rand"
	"testing"
)

func TestMixer_EqFlatIsPassthrough(t *testing.T) {
	mc := defaultMixerChannel()
	var eq channelEQ
	eq.refresh(48000, &mc)

	rng := rand.New(rand.NewSource(1))
	var sse float64
	for i := 0; i < 4096; i++ {
		in := float32(rng.Float64()*2 - 1)
		outL, outR := eq.process(in, in)
		dl := float64(outL - in)
		dr := float64(outR - in)
		sse += dl*dl + dr*dr
	}
	if sse >= 1e-6 {
		t.Fatalf("flat EQ is not transparent: sse %g", sse)
	}
}

func TestMixer_EqBandsShapeSignal(t *testing.T) {
	const sr = 48000.0

	energyAt := func(eq *channelEQ, freq float64) float64 {
		var sum float64
		phase := 0.0
		inc := 2 * math.Pi * freq / sr
		// let the filter settle, then measure
		for i := 0; i < 9600; i++ {
			in := float32(math.Sin(phase))
			phase += inc
			out, _ := eq.process(in, in)
			if i >= 4800 {
				sum += float64(out) * float64(out)
			}
		}
		return sum
	}

	cases := []struct {
		name  string
		set   func(mc *MixerChannel)
		probe float64
	}{
		{"low shelf boost", func(mc *MixerChannel) { mc.eqLow = 12 }, 60},
		{"mid peak boost", func(mc *MixerChannel) { mc.eqMid = 12 }, 1200},
		{"high shelf boost", func(mc *MixerChannel) { mc.eqHigh = 12 }, 12000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flat := defaultMixerChannel()
			var flatEq channelEQ
			flatEq.refresh(sr, &flat)
			ref := energyAt(&flatEq, tc.probe)

			boosted := defaultMixerChannel()
			tc.set(&boosted)
			var boostEq channelEQ
			boostEq.refresh(sr, &boosted)
			got := energyAt(&boostEq, tc.probe)

			if got < ref*2 {
				t.Fatalf("+12 dB band left energy at %g (flat %g)", got, ref)
			}
		})
	}
}

func TestMixer_EqRefreshResetsState(t *testing.T) {
	mc := defaultMixerChannel()
	mc.eqLow = 12
	var eq channelEQ
	eq.refresh(48000, &mc)

	for i := 0; i < 512; i++ {
		eq.process(1, 1)
	}
	eq.refresh(48000, &mc)
	if eq.lowL.y1 != 0 || eq.midL.y1 != 0 || eq.highL.y1 != 0 {
		t.Fatal("refresh must zero filter state")
	}
}

func TestMixer_ResizePreservesChannels(t *testing.T) {
	m := NewMixer(4, 48000)
	m.channels[2].gain = 0.1
	m.channels[2].solo = true

	m.Resize(8, 48000)
	if len(m.channels) != 8 {
		t.Fatalf("resize to 8 got %d", len(m.channels))
	}
	if m.channels[2].gain != 0.1 || !m.channels[2].solo {
		t.Fatal("resize lost existing channel state")
	}
	if m.channels[7].gain != DEFAULT_CHANNEL_GAIN {
		t.Fatal("new channels must get defaults")
	}

	m.Resize(2, 48000)
	if len(m.channels) != 2 || len(m.meters.chRmsL) != 2 {
		t.Fatal("shrink must track meters")
	}
}

func TestMixer_ResizeClampsRange(t *testing.T) {
	m := NewMixer(4, 48000)
	m.Resize(0, 48000)
	if len(m.channels) != 1 {
		t.Fatalf("channels below 1 must clamp, got %d", len(m.channels))
	}
	m.Resize(1000, 48000)
	if len(m.channels) != 64 {
		t.Fatalf("channels above 64 must clamp, got %d", len(m.channels))
	}
}

func TestMixer_ClampChannelRouting(t *testing.T) {
	m := NewMixer(4, 48000)
	cases := []struct{ mixCh, want int }{
		{1, 0}, {4, 3}, {99, 3}, {0, 0}, {-5, 0},
	}
	for _, tc := range cases {
		if got := m.clampChannel(tc.mixCh); got != tc.want {
			t.Errorf("clampChannel(%d) = %d, want %d", tc.mixCh, got, tc.want)
		}
	}
}

func TestMixer_SoloPredicate(t *testing.T) {
	m := NewMixer(3, 48000)
	if m.anySolo() {
		t.Fatal("fresh mixer reports solo")
	}

	m.channels[1].solo = true
	if !m.audible(1, m.anySolo()) {
		t.Fatal("solo channel must stay audible")
	}
	if m.audible(0, m.anySolo()) {
		t.Fatal("non-solo channel must silence under solo")
	}

	m.channels[1].mute = true
	if m.audible(1, m.anySolo()) {
		t.Fatal("mute wins over solo")
	}
}

func TestMixer_MeterAccumulateAndFinalize(t *testing.T) {
	var mb meterBank
	mb.resize(2)

	// A constant 0.5 over one block: rms == 0.5, peak == 0.5.
	for i := 0; i < 256; i++ {
		mb.accumulateChannel(0, 0.5, -0.5)
		mb.accumulateMaster(0.5, -0.5)
	}
	mb.finalizeBlock(256)

	if math.Abs(float64(mb.chRmsL[0])-0.5) > 1e-6 || math.Abs(float64(mb.chRmsR[0])-0.5) > 1e-6 {
		t.Fatalf("channel rms %g/%g, want 0.5", mb.chRmsL[0], mb.chRmsR[0])
	}
	if mb.chPeakL[0] != 0.5 || mb.chPeakR[0] != 0.5 {
		t.Fatalf("channel peak %g/%g, want 0.5", mb.chPeakL[0], mb.chPeakR[0])
	}
	if mb.masterRmsL != 0.5 || mb.masterPeakL != 0.5 {
		t.Fatalf("master meters %g/%g", mb.masterRmsL, mb.masterPeakL)
	}

	// Accumulators reset; a silent block zeroes rms but peaks hold.
	mb.finalizeBlock(256)
	if mb.masterRmsL != 0 {
		t.Fatal("rms accumulator not cleared between blocks")
	}
	if mb.masterPeakL != 0.5 {
		t.Fatal("peak must latch across blocks until reported")
	}
}
