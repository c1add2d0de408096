// audio_render.go - The realtime render callback

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

// RenderBlock produces n frames into the caller's planar output buffers.
// Channels 0 and 1 carry the stereo master; any further channel receives the
// mono average. This is the audio thread's whole world: one audioMu hold,
// no allocation, no I/O.
func (e *Engine) RenderBlock(out [][]float32, n int) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	for ch := range out {
		buf := out[ch]
		for i := 0; i < n && i < len(buf); i++ {
			buf[i] = 0
		}
	}
	if n <= 0 {
		return
	}

	if e.playArmed.Load() && e.samplePos >= e.playStartSamplePos {
		e.playArmed.Store(false)
		e.playing.Store(true)
	}

	sr := e.sampleRate
	bpm := e.bpm.Load()

	if e.playing.Load() {
		fromPpq := samplesToPpq(e.samplePos, sr, bpm)
		toPpq := samplesToPpq(e.samplePos+int64(n), sr, bpm)
		e.blockEvents = e.sched.PrepareBlock(fromPpq, toPpq, e.samplePos, n, sr, bpm, e.blockEvents)
	} else {
		e.blockEvents = e.blockEvents[:0]
	}

	anySolo := e.mixer.anySolo()
	channels := len(e.mixer.channels)
	nextEv := 0

	for i := 0; i < n; i++ {
		for nextEv < len(e.blockEvents) && e.blockEvents[nextEv].offset == i {
			e.dispatchEventLocked(&e.blockEvents[nextEv].ev)
			nextEv++
		}

		for ch := 0; ch < channels; ch++ {
			e.busL[ch] = 0
			e.busR[ch] = 0
		}

		// Sampler voices. Muted and solo-silenced voices still advance so
		// their timeline position stays honest.
		for vi := range e.samplers.voices {
			sv := &e.samplers.voices[vi]
			if !sv.active {
				continue
			}
			l, r, ok := sv.nextSample()
			if !ok {
				continue
			}
			idx := e.mixer.clampChannel(sv.mixCh)
			if !e.mixer.audible(idx, anySolo) {
				continue
			}
			e.busL[idx] += l
			e.busR[idx] += r
		}

		// Tone voices
		for vi := range e.tones.voices {
			v := &e.tones.voices[vi]
			if !v.active {
				continue
			}
			amp := v.nextSample(sr)
			if !v.active {
				continue
			}
			idx := e.mixer.clampChannel(v.mixCh)
			if !e.mixer.audible(idx, anySolo) {
				continue
			}
			e.busL[idx] += amp
			e.busR[idx] += amp
		}

		// Channel strips into the master sum
		var masterL, masterR float32
		for ch := 0; ch < channels; ch++ {
			cl, cr := e.mixer.eq[ch].process(e.busL[ch], e.busR[ch])
			cl, cr = e.mixer.fx[ch].process(cl, cr)

			mc := &e.mixer.channels[ch]
			cl *= mc.gain
			cr *= mc.gain

			pan := mc.pan
			outL := cl * (1 - pan)
			outR := cr * (1 + pan)

			e.mixer.meters.accumulateChannel(ch, outL, outR)
			masterL += outL
			masterR += outR
		}

		masterL, masterR = e.mixer.masterFx.process(masterL, masterR)
		masterL *= e.mixer.masterGain
		masterR *= e.mixer.masterGain

		xf := e.mixer.crossfader
		xfL, xfR := float32(1), float32(1)
		if xf > 0 {
			xfL = 1 - xf
		}
		if xf < 0 {
			xfR = 1 + xf
		}
		masterL *= xfL
		masterR *= xfR

		if len(out) > 0 && i < len(out[0]) {
			out[0][i] = masterL
		}
		if len(out) > 1 && i < len(out[1]) {
			out[1][i] = masterR
		}
		if len(out) > 2 {
			mono := (masterL + masterR) * 0.5
			for ch := 2; ch < len(out); ch++ {
				if i < len(out[ch]) {
					out[ch][i] = mono
				}
			}
		}

		e.mixer.meters.accumulateMaster(masterL, masterR)
	}

	e.samplePos += int64(n)
	e.mixer.meters.finalizeBlock(n)
}

// dispatchEventLocked fires one scheduled event at its sample offset. Runs
// on the audio thread with audioMu held: store lookups are map reads, never
// I/O, and a sampler trigger whose sample is not cached is skipped.
func (e *Engine) dispatchEventLocked(ev *ScheduledEvent) {
	switch ev.kind {
	case EVENT_TONE_ON:
		e.startToneLocked(ev.instID, ev.mixCh, ev.note, ev.vel)

	case EVENT_TONE_OFF:
		e.tones.stop(ev.instID, ev.mixCh, ev.note)

	case EVENT_PROGRAM_ON:
		rootKey, s, ok := e.programs.BestMatch(ev.instID, ev.note)
		if !ok {
			return
		}
		e.samplers.alloc(makeProgramVoice(ev.instID, ev.note, ev.mixCh, ev.vel, s, rootKey, e.sampleRate))

	case EVENT_PROGRAM_OFF:
		e.samplers.stopMatching(ev.instID, ev.mixCh, ev.note)

	case EVENT_SAMPLER_TRIGGER:
		msg := ev.trigger
		if msg == nil {
			return
		}
		s, ok := e.store.Get(msg.SampleID)
		if !ok || s == nil || s.Frames() <= 1 {
			return
		}
		e.samplers.alloc(buildSamplerVoice(msg, s, e.sampleRate, e.bpm.Load()))
	}
}
