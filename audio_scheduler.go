// audio_scheduler.go - Beat-sorted timeline scheduler with block dispatch

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
	"sort"
	"sync"
)

type eventKind int

const (
	EVENT_NONE eventKind = iota
	EVENT_TONE_ON
	EVENT_TONE_OFF
	EVENT_PROGRAM_ON
	EVENT_PROGRAM_OFF
	EVENT_SAMPLER_TRIGGER
)

// ScheduledEvent is one future musical event in beat time. The sampler
// trigger payload is parsed once at push time on the control thread; the
// audio thread only reads the typed struct.
type ScheduledEvent struct {
	atPpq  float64
	kind   eventKind
	instID string
	mixCh  int
	note   int
	vel    float32
	durPpq float64

	trigger *samplerTriggerMsg
}

// BlockEvent annotates an event with its sample offset inside one block.
type BlockEvent struct {
	offset int
	ev     ScheduledEvent
}

// Scheduler owns the sorted event vector and a monotone cursor. Its mutex is
// separate from the audio mutex: the audio thread holds it only long enough
// to snapshot a block's events.
type Scheduler struct {
	mu sync.Mutex

	events []ScheduledEvent
	cursor int

	windowFromPpq float64
	windowToPpq   float64
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Push appends events and restores beat order with a stable sort, so events
// sharing a beat keep their push order. The cursor does not move.
func (s *Scheduler) Push(evs []ScheduledEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, evs...)
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].atPpq < s.events[j].atPpq
	})
	return len(s.events)
}

func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.cursor = 0
}

// SetWindow installs a beat-range filter. A window with to <= from is
// disabled and every event passes.
func (s *Scheduler) SetWindow(fromPpq, toPpq float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowFromPpq = fromPpq
	s.windowToPpq = toPpq
}

// Seek rebinds the cursor to the first event at or after ppq. Past events
// stay in the vector.
func (s *Scheduler) Seek(ppq float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = sort.Search(len(s.events), func(i int) bool {
		return s.events[i].atPpq >= ppq
	})
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// PrepareBlock snapshots the events firing inside [fromPpq, toPpq) into out,
// each with its clamped sample offset, and advances the cursor past every
// event before toPpq. out is the caller's reusable buffer; the result is
// stably ordered by offset.
func (s *Scheduler) PrepareBlock(fromPpq, toPpq float64, samplePos int64, n int, sr, bpm float64, out []BlockEvent) []BlockEvent {
	out = out[:0]

	s.mu.Lock()

	cursor := s.cursor
	for cursor < len(s.events) {
		ev := &s.events[cursor]
		if ev.atPpq >= toPpq {
			break
		}

		inRange := ev.atPpq >= fromPpq
		inWindow := s.windowToPpq <= s.windowFromPpq ||
			(ev.atPpq >= s.windowFromPpq && ev.atPpq <= s.windowToPpq)

		if inRange && inWindow {
			absSample := ppqToSamples(ev.atPpq, sr, bpm)
			offset := int(absSample - samplePos)
			if offset < 0 {
				offset = 0
			}
			if offset >= n {
				offset = n - 1
			}
			out = append(out, BlockEvent{offset: offset, ev: *ev})
		}
		cursor++
	}

	for s.cursor < len(s.events) && s.events[s.cursor].atPpq < toPpq {
		s.cursor++
	}

	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].offset < out[j].offset
	})
	return out
}

func samplesToPpq(samples int64, sr, bpm float64) float64 {
	bps := bpm / 60.0
	return (float64(samples) / math.Max(1, sr)) * bps
}

func ppqToSamples(ppq float64, sr, bpm float64) int64 {
	bps := math.Max(1e-9, bpm/60.0)
	return int64(math.Round((ppq / bps) * math.Max(1, sr)))
}

// eventKindFromType canonicalizes the wire event type. Unknown kinds map to
// EVENT_NONE and are skipped at dispatch.
func eventKindFromType(t string) eventKind {
	switch t {
	case "note.on", "midi.noteon":
		return EVENT_TONE_ON
	case "note.off", "midi.noteoff":
		return EVENT_TONE_OFF
	case "program.on", "program.note.on", "touski.note.on":
		return EVENT_PROGRAM_ON
	case "program.off", "program.note.off", "touski.note.off":
		return EVENT_PROGRAM_OFF
	case "sampler.trigger":
		return EVENT_SAMPLER_TRIGGER
	}
	return EVENT_NONE
}
