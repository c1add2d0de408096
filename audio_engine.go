// audio_engine.go - Engine aggregate: transport, configuration and control state

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
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	ENGINE_NAME     = "sls-audio-engine"
	ENGINE_VERSION  = "0.3.0"
	PROTOCOL_NAME   = "SLS-IPC/1.0"
	DEFAULT_SR      = 48000.0
	DEFAULT_BUFSIZE = 512
	DEFAULT_CHANS   = 16
	DEFAULT_BPM     = 120.0
	DEFAULT_PREROLL = 120.0 // ms
	MIN_BPM         = 20.0
	MIN_SAMPLE_RATE = 22050.0
	MIN_BUFFER_SIZE = 64
)

var logger = log.New(os.Stderr, "[sls] ", log.LstdFlags|log.Lmsgprefix)

// atomicFloat64 stores a float64 behind an atomic word, for the transport
// fields read on every block.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

type meterSubscription struct {
	active   bool
	fps      int
	channels map[int]bool
}

// Engine is the whole audio process: voice pools, mixer graph, scheduler,
// transport and device binding.
//
// Locking: audioMu is the single coarse mutex the audio thread takes, once
// per block, for the duration of that block. Every control mutation that
// touches audio state takes it too. The scheduler carries its own state
// mutex; tempo and the playing/armed flags are atomics; samplePos is written
// only while audioMu is held by the render path.
type Engine struct {
	audioMu sync.Mutex

	running   atomic.Bool
	playing   atomic.Bool
	playArmed atomic.Bool

	bpm            atomicFloat64
	playPrerollMs  atomicFloat64
	schedulerDebug atomic.Bool

	// Device configuration. Mutated under audioMu by engine.config.set,
	// which reopens the device.
	sampleRate float64
	bufferSize int
	numOut     int
	numIn      int
	ready      bool

	samplePos          int64
	playStartSamplePos int64

	tones    *tonePool
	samplers *samplerPool

	store       *SampleStore
	instruments map[string]*Instrument
	programs    *ProgramMap

	mixer *Mixer
	sched *Scheduler

	// Reused render scratch. Grown only under audioMu, outside the
	// per-sample loop.
	blockEvents []BlockEvent
	busL, busR  []float32

	meterSub        meterSubscription
	lastProjectSync json.RawMessage

	output AudioOutput

	// loadSample decodes an audio file; swapped in tests.
	loadSample func(path string) (*Sample, error)
}

func NewEngine() *Engine {
	e := &Engine{
		sampleRate:  DEFAULT_SR,
		bufferSize:  DEFAULT_BUFSIZE,
		numOut:      2,
		tones:       newTonePool(),
		samplers:    newSamplerPool(),
		store:       NewSampleStore(),
		instruments: make(map[string]*Instrument),
		programs:    NewProgramMap(),
		sched:       NewScheduler(),
		loadSample:  loadSampleFile,
	}
	e.running.Store(true)
	e.bpm.Store(DEFAULT_BPM)
	e.playPrerollMs.Store(DEFAULT_PREROLL)
	e.mixer = NewMixer(DEFAULT_CHANS, e.sampleRate)
	e.resizeBuses(DEFAULT_CHANS)
	return e
}

func (e *Engine) resizeBuses(channels int) {
	if channels < 1 {
		channels = 1
	}
	e.busL = resizeMeterSlice(e.busL, channels)
	e.busR = resizeMeterSlice(e.busR, channels)
	if cap(e.blockEvents) == 0 {
		e.blockEvents = make([]BlockEvent, 0, 256)
	}
}

func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

func (e *Engine) Shutdown() {
	e.running.Store(false)
}

// ------------------------------ Device ------------------------------

// OpenDevice binds the platform backend. Failure keeps the engine alive
// with ready=false, per the device error contract.
func (e *Engine) OpenDevice() error {
	out, err := newDeviceOutput(e)
	if err != nil {
		e.audioMu.Lock()
		e.ready = false
		e.audioMu.Unlock()
		return fmt.Errorf("audio device: %w", err)
	}
	e.audioMu.Lock()
	e.output = out
	e.ready = true
	e.audioMu.Unlock()
	return out.Start()
}

func (e *Engine) CloseDevice() {
	e.audioMu.Lock()
	out := e.output
	e.output = nil
	e.ready = false
	e.audioMu.Unlock()
	if out != nil {
		out.Close()
	}
}

// ------------------------------ Transport ------------------------------

// Play arms the transport; the render path flips armed to playing once the
// preroll deadline passes.
func (e *Engine) Play() {
	e.audioMu.Lock()
	prerollSec := math.Max(0, e.playPrerollMs.Load()/1000.0)
	e.playStartSamplePos = e.samplePos + int64(math.Round(prerollSec*math.Max(1, e.sampleRate)))
	e.playArmed.Store(true)
	e.playing.Store(false)
	e.audioMu.Unlock()
}

// Stop clears armed/playing and hard-stops every voice. Scheduled future
// events stay queued.
func (e *Engine) Stop() {
	e.playing.Store(false)
	e.playArmed.Store(false)
	e.PanicVoices()
}

func (e *Engine) SeekSamples(pos int64) {
	if pos < 0 {
		pos = 0
	}
	e.audioMu.Lock()
	e.samplePos = pos
	e.playArmed.Store(false)
	e.playing.Store(false)
	curPpq := samplesToPpq(e.samplePos, e.sampleRate, e.bpm.Load())
	e.audioMu.Unlock()
	e.sched.Seek(curPpq)
}

func (e *Engine) SeekPpq(ppq float64) {
	e.audioMu.Lock()
	pos := ppqToSamples(ppq, e.sampleRate, e.bpm.Load())
	e.audioMu.Unlock()
	e.SeekSamples(pos)
}

func (e *Engine) SetTempo(bpm float64) {
	e.bpm.Store(math.Max(MIN_BPM, bpm))
}

// ------------------------------ Instruments and voices ------------------------------

func (e *Engine) instrumentLocked(instID string) *Instrument {
	inst, ok := e.instruments[instID]
	if !ok {
		def := defaultInstrument("piano")
		inst = &def
		e.instruments[instID] = inst
	}
	return inst
}

func (e *Engine) CreateInstrument(instID, typ string) {
	e.audioMu.Lock()
	def := defaultInstrument(typ)
	e.instruments[instID] = &def
	e.audioMu.Unlock()
}

func (e *Engine) SetInstrumentParams(instID, typ string, p *instParamsMsg) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	inst, ok := e.instruments[instID]
	if !ok {
		def := defaultInstrument(typ)
		inst = &def
		e.instruments[instID] = inst
	}
	if typ != "" {
		inst.typ = typ
	}
	if p == nil {
		return
	}
	if p.Gain != nil {
		inst.gain = float32(math.Max(0, *p.Gain))
	}
	if p.Attack != nil {
		inst.attack = float32(math.Max(0.001, *p.Attack))
	}
	if p.Decay != nil {
		inst.decay = float32(math.Max(0.005, *p.Decay))
	}
	if p.Sustain != nil {
		inst.sustain = float32(clampF(*p.Sustain, 0, 1))
	}
	if p.Release != nil {
		inst.release = float32(math.Max(0.01, *p.Release))
	}
	if p.Waveform.set {
		inst.waveform = p.Waveform.val
	}
	if p.Fm != nil {
		inst.fm = float32(*p.Fm)
	}
}

func (e *Engine) StartTone(instID string, mixCh, note int, velocity float32) {
	e.audioMu.Lock()
	e.startToneLocked(instID, mixCh, note, velocity)
	e.audioMu.Unlock()
}

func (e *Engine) startToneLocked(instID string, mixCh, note int, velocity float32) {
	inst := e.instrumentLocked(instID)
	e.tones.start(inst, instID, mixCh, note, velocity, e.sampleRate)
}

func (e *Engine) StopTone(instID string, mixCh, note int) {
	e.audioMu.Lock()
	e.tones.stop(instID, mixCh, note)
	e.audioMu.Unlock()
}

func (e *Engine) PanicVoices() {
	e.audioMu.Lock()
	e.tones.panic()
	e.samplers.panic()
	e.audioMu.Unlock()
}

// ------------------------------ Sampler ------------------------------

// LoadSampleFile decodes outside the audio mutex and installs the decoded
// sample under it.
func (e *Engine) LoadSampleFile(sampleID, path string) error {
	s, err := e.loadSample(path)
	if err != nil {
		return err
	}
	e.audioMu.Lock()
	e.store.Put(sampleID, s)
	e.audioMu.Unlock()
	return nil
}

func (e *Engine) UnloadSample(sampleID string) {
	e.audioMu.Lock()
	e.store.Drop(sampleID)
	e.audioMu.Unlock()
}

// TriggerSampler resolves the sample (loading an ad-hoc path if needed,
// outside the mutex) and allocates the voice.
func (e *Engine) TriggerSampler(msg *samplerTriggerMsg) error {
	sampleID := msg.SampleID

	e.audioMu.Lock()
	s, ok := e.store.Get(sampleID)
	e.audioMu.Unlock()

	if !ok && msg.SamplePath != "" {
		loaded, err := e.loadSample(msg.SamplePath)
		if err != nil {
			return fmt.Errorf("load %s: %w", msg.SamplePath, err)
		}
		if sampleID == "" {
			sampleID = "adhoc:" + msg.SamplePath
		}
		e.audioMu.Lock()
		e.store.Put(sampleID, loaded)
		e.audioMu.Unlock()
		s, ok = loaded, true
	}
	if !ok || s == nil {
		return fmt.Errorf("sample %q not loaded", msg.SampleID)
	}
	if s.Frames() <= 1 {
		return fmt.Errorf("sample %q too short", sampleID)
	}

	e.audioMu.Lock()
	v := buildSamplerVoice(msg, s, e.sampleRate, e.bpm.Load())
	e.samplers.alloc(v)
	e.audioMu.Unlock()
	return nil
}

// ------------------------------ Programs ------------------------------

func (e *Engine) InstallProgram(instID string, mapping map[int]*Sample) {
	e.audioMu.Lock()
	e.programs.Put(instID, mapping)
	e.audioMu.Unlock()
}

func (e *Engine) HasProgram(instID string) bool {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	return e.programs.Has(instID)
}

func (e *Engine) ProgramNoteOn(instID string, mixCh, note int, velocity float32) error {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	if !e.programs.Has(instID) {
		return fmt.Errorf("program %q not loaded", instID)
	}
	rootKey, s, ok := e.programs.BestMatch(instID, note)
	if !ok {
		return fmt.Errorf("no sample for note %d", note)
	}
	e.samplers.alloc(makeProgramVoice(instID, note, mixCh, velocity, s, rootKey, e.sampleRate))
	return nil
}

func (e *Engine) ProgramNoteOff(instID string, mixCh, note int) {
	e.audioMu.Lock()
	e.samplers.stopMatching(instID, mixCh, note)
	e.audioMu.Unlock()
}

// ------------------------------ Mixer and FX ------------------------------

func (e *Engine) MixerInit(channels int) {
	e.audioMu.Lock()
	e.mixer.Resize(channels, e.sampleRate)
	e.resizeBuses(len(e.mixer.channels))
	e.audioMu.Unlock()
}

func (e *Engine) SetMasterParam(param string, value float64) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	switch param {
	case "gain":
		e.mixer.masterGain = float32(math.Max(0, value))
	case "crossfader":
		e.mixer.crossfader = float32(clampF(value, -1, 1))
	}
}

func (e *Engine) SetChannelParam(ch int, param string, value float64) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	ch = e.clampStripIndex(ch)
	mc := &e.mixer.channels[ch]
	switch param {
	case "gain":
		mc.gain = float32(math.Max(0, value))
	case "pan":
		mc.pan = float32(clampF(value, -1, 1))
	case "eqLow":
		mc.eqLow = float32(value)
	case "eqMid":
		mc.eqMid = float32(value)
	case "eqHigh":
		mc.eqHigh = float32(value)
	case "mute":
		mc.mute = value >= 0.5
	case "solo":
		mc.solo = value >= 0.5
	}
	e.mixer.eq[ch].refresh(e.sampleRate, mc)
}

func (e *Engine) SetChannelFields(msg *mixerChannelSetMsg) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	ch := e.clampStripIndex(intOr(msg.Ch, 0))
	mc := &e.mixer.channels[ch]
	if msg.Gain != nil {
		mc.gain = float32(math.Max(0, *msg.Gain))
	}
	if msg.Pan != nil {
		mc.pan = float32(clampF(*msg.Pan, -1, 1))
	}
	mc.mute = msg.Mute.or(mc.mute)
	mc.solo = msg.Solo.or(mc.solo)
	if msg.EqLow != nil {
		mc.eqLow = float32(*msg.EqLow)
	}
	if msg.EqMid != nil {
		mc.eqMid = float32(*msg.EqMid)
	}
	if msg.EqHigh != nil {
		mc.eqHigh = float32(*msg.EqHigh)
	}
	e.mixer.eq[ch].refresh(e.sampleRate, mc)
}

func (e *Engine) clampStripIndex(ch int) int {
	if ch < 0 {
		ch = 0
	}
	if ch >= len(e.mixer.channels) {
		ch = len(e.mixer.channels) - 1
	}
	return ch
}

// resolveFxTarget returns a pointer to the chain named by the target, master
// by default. Callers must hold audioMu.
func (e *Engine) resolveFxTarget(target *fxTargetMsg) *fxChain {
	if target != nil && (target.Scope == "channel" || target.Scope == "ch") {
		return &e.mixer.fx[e.clampStripIndex(target.Ch)]
	}
	return &e.mixer.masterFx
}

func (e *Engine) SetFxChain(target *fxTargetMsg, units []fxUnitMsg) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	chain := e.resolveFxTarget(target)
	next := make(fxChain, 0, len(units))
	for _, um := range units {
		u := NewFxUnit(um.ID, um.Type, e.sampleRate, e.bpm.Load())
		if u.id == "" {
			u.id = "fx"
		}
		u.enabled = um.Enabled.or(true)
		u.bypass = um.Bypass.or(false)
		u.replaceParams(um.Params, e.sampleRate, e.bpm.Load())
		next = append(next, u)
	}
	*chain = next
}

func (e *Engine) SetFxParams(target *fxTargetMsg, id, typ string, params map[string]float64) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	chain := e.resolveFxTarget(target)
	if id == "" {
		id = "fx"
	}
	u := chain.find(id)
	if u == nil {
		if typ == "" {
			typ = FX_TYPE_REVERB
		}
		u = NewFxUnit(id, typ, e.sampleRate, e.bpm.Load())
		*chain = append(*chain, u)
	}
	u.setParams(params, e.sampleRate, e.bpm.Load())
}

func (e *Engine) SetFxBypass(target *fxTargetMsg, id string, bypass bool) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	if u := e.resolveFxTarget(target).find(id); u != nil {
		u.bypass = bypass
	}
}

// ------------------------------ Configuration ------------------------------

type engineConfig struct {
	SampleRate     float64 `json:"sampleRate"`
	BufferSize     int     `json:"bufferSize"`
	NumOut         int     `json:"numOut"`
	NumIn          int     `json:"numIn"`
	Channels       int     `json:"channels"`
	PlayPrerollMs  float64 `json:"playPrerollMs"`
	SchedulerDebug bool    `json:"schedulerDebug"`
}

func (e *Engine) Config() engineConfig {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	return engineConfig{
		SampleRate:     e.sampleRate,
		BufferSize:     e.bufferSize,
		NumOut:         e.numOut,
		NumIn:          e.numIn,
		Channels:       len(e.mixer.channels),
		PlayPrerollMs:  e.playPrerollMs.Load(),
		SchedulerDebug: e.schedulerDebug.Load(),
	}
}

// ApplyConfig validates and installs new device parameters, then reopens the
// audio device at the new rate.
func (e *Engine) ApplyConfig(msg *engineConfigSetMsg) error {
	e.audioMu.Lock()
	if msg.SampleRate != nil {
		e.sampleRate = math.Max(MIN_SAMPLE_RATE, *msg.SampleRate)
	}
	if msg.BufferSize != nil {
		e.bufferSize = maxInt(MIN_BUFFER_SIZE, *msg.BufferSize)
	}
	if msg.NumOut != nil {
		e.numOut = maxInt(1, *msg.NumOut)
	}
	if msg.NumIn != nil {
		e.numIn = maxInt(0, *msg.NumIn)
	}
	if msg.PlayPrerollMs != nil {
		e.playPrerollMs.Store(math.Max(0, *msg.PlayPrerollMs))
	}
	e.schedulerDebug.Store(msg.SchedulerDebug.or(e.schedulerDebug.Load()))

	// Rates changed: rebuild every rate-derived coefficient set.
	e.mixer.RefreshEQ(e.sampleRate)
	for i := range e.mixer.fx {
		e.mixer.fx[i].reconfigure(e.sampleRate, e.bpm.Load())
	}
	e.mixer.masterFx.reconfigure(e.sampleRate, e.bpm.Load())
	e.audioMu.Unlock()

	e.CloseDevice()
	return e.OpenDevice()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ------------------------------ Meters ------------------------------

func (e *Engine) SubscribeMeters(fps int, channels []int) {
	if fps < 1 {
		fps = 1
	}
	if fps > 60 {
		fps = 60
	}
	set := make(map[int]bool, len(channels))
	for _, ch := range channels {
		set[ch] = true
	}
	if len(set) == 0 {
		set[-1] = true
	}

	e.audioMu.Lock()
	e.meterSub = meterSubscription{active: true, fps: fps, channels: set}
	e.audioMu.Unlock()
}

func (e *Engine) UnsubscribeMeters() {
	e.audioMu.Lock()
	e.meterSub = meterSubscription{}
	e.audioMu.Unlock()
}

// MeterSubscription reports the active subscription rate without touching
// the latched peaks.
func (e *Engine) MeterSubscription() (fps int, active bool) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	return e.meterSub.fps, e.meterSub.active
}

type meterFrame struct {
	Ch   int        `json:"ch"`
	Rms  [2]float32 `json:"rms"`
	Peak [2]float32 `json:"peak"`
}

type meterLevelData struct {
	Frames []meterFrame `json:"frames"`
}

// MeterSnapshot reports RMS and latched peaks for every subscribed channel,
// resetting the reported peaks. Returns ok=false when unsubscribed.
func (e *Engine) MeterSnapshot() (meterLevelData, int, bool) {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()

	if !e.meterSub.active {
		return meterLevelData{}, 0, false
	}

	mb := &e.mixer.meters
	var data meterLevelData
	if e.meterSub.channels[-1] {
		data.Frames = append(data.Frames, meterFrame{
			Ch:   -1,
			Rms:  [2]float32{mb.masterRmsL, mb.masterRmsR},
			Peak: [2]float32{mb.masterPeakL, mb.masterPeakR},
		})
		mb.masterPeakL, mb.masterPeakR = 0, 0
	}
	for ch := 0; ch < len(e.mixer.channels); ch++ {
		if !e.meterSub.channels[ch] {
			continue
		}
		data.Frames = append(data.Frames, meterFrame{
			Ch:   ch,
			Rms:  [2]float32{mb.chRmsL[ch], mb.chRmsR[ch]},
			Peak: [2]float32{mb.chPeakL[ch], mb.chPeakR[ch]},
		})
		mb.chPeakL[ch], mb.chPeakR[ch] = 0, 0
	}
	return data, e.meterSub.fps, true
}

// ------------------------------ Snapshots ------------------------------

type helloCapabilities struct {
	Scheduler   bool `json:"scheduler"`
	Mixer       bool `json:"mixer"`
	Fx          bool `json:"fx"`
	Meters      bool `json:"meters"`
	Sampler     bool `json:"sampler"`
	Program     bool `json:"program"`
	ProjectSync bool `json:"projectSync"`
}

type helloData struct {
	Protocol      string            `json:"protocol"`
	EngineName    string            `json:"engineName"`
	EngineVersion string            `json:"engineVersion"`
	Platform      string            `json:"platform"`
	Pid           int               `json:"pid"`
	Capabilities  helloCapabilities `json:"capabilities"`
}

func (e *Engine) Hello() helloData {
	return helloData{
		Protocol:      PROTOCOL_NAME,
		EngineName:    ENGINE_NAME,
		EngineVersion: ENGINE_VERSION,
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		Pid:           os.Getpid(),
		Capabilities: helloCapabilities{
			Scheduler: true, Mixer: true, Fx: true, Meters: true,
			Sampler: true, Program: true, ProjectSync: true,
		},
	}
}

type engineStateData struct {
	Ready      bool    `json:"ready"`
	SampleRate float64 `json:"sampleRate"`
	BufferSize int     `json:"bufferSize"`
	CpuLoad    float64 `json:"cpuLoad"`
	Xruns      int     `json:"xruns"`
}

func (e *Engine) State() engineStateData {
	e.audioMu.Lock()
	defer e.audioMu.Unlock()
	return engineStateData{
		Ready:      e.ready,
		SampleRate: e.sampleRate,
		BufferSize: e.bufferSize,
	}
}

type transportStateData struct {
	Playing   bool    `json:"playing"`
	Bpm       float64 `json:"bpm"`
	Ppq       float64 `json:"ppq"`
	SamplePos int64   `json:"samplePos"`
}

func (e *Engine) TransportState() transportStateData {
	e.audioMu.Lock()
	pos := e.samplePos
	sr := e.sampleRate
	e.audioMu.Unlock()

	bpm := e.bpm.Load()
	return transportStateData{
		Playing:   e.playing.Load() || e.playArmed.Load(),
		Bpm:       bpm,
		Ppq:       samplesToPpq(pos, sr, bpm),
		SamplePos: pos,
	}
}

func (e *Engine) SetProjectSync(raw json.RawMessage) {
	e.audioMu.Lock()
	e.lastProjectSync = append(json.RawMessage(nil), raw...)
	e.audioMu.Unlock()
}
