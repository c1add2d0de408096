// audio_program.go - Multi-key sample instrument (key-to-sample programs)

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

// programZone binds one key to its sample and remembers nothing else; pitch
// compensation is derived at note-on from the key distance.
type ProgramMap struct {
	programs map[string]map[int]*Sample
}

func NewProgramMap() *ProgramMap {
	return &ProgramMap{programs: make(map[string]map[int]*Sample)}
}

func (pm *ProgramMap) Put(instID string, mapping map[int]*Sample) {
	pm.programs[instID] = mapping
}

func (pm *ProgramMap) Has(instID string) bool {
	m, ok := pm.programs[instID]
	return ok && len(m) > 0
}

// BestMatch returns the mapped key nearest to the requested note. Equal
// distances resolve to the numerically smaller key so lookups stay
// deterministic across map iteration order.
func (pm *ProgramMap) BestMatch(instID string, note int) (rootKey int, s *Sample, ok bool) {
	m := pm.programs[instID]
	if len(m) == 0 {
		return 0, nil, false
	}

	bestDist := math.MaxInt32
	for key, sample := range m {
		dist := key - note
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist || (dist == bestDist && key < rootKey) {
			bestDist = dist
			rootKey = key
			s = sample
			ok = true
		}
	}
	return rootKey, s, ok
}

// makeProgramVoice builds the sampler voice for a program note-on: the whole
// sample, pitched by the equal-temperament distance from the chosen key and
// compensated for the source rate.
func makeProgramVoice(instID string, note, mixCh int, velocity float32, s *Sample, rootKey int, engineSr float64) SamplerVoice {
	if mixCh < 1 {
		mixCh = 1
	}
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}

	pitchRatio := math.Pow(2, float64(note-rootKey)/12.0)
	rate := pitchRatio * (s.sampleRate / math.Max(1, engineSr))
	if rate < MIN_PLAYBACK_RATE {
		rate = MIN_PLAYBACK_RATE
	}

	return SamplerVoice{
		active: true,
		instID: instID,
		note:   note,
		sample: s,
		start:  0,
		end:    s.Frames(),
		pos:    0,
		rate:   rate,
		gainL:  velocity,
		gainR:  velocity,
		mixCh:  mixCh,

		fadeOutTotal: SAMPLE_FADE_SAMPLES,
	}
}
