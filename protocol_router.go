// protocol_router.go - Request dispatch, validation and replies

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
	"strings"
)

// Router is the single-threaded control dispatcher. It parses each request
// into its typed payload, validates it, mutates engine state and replies.
// The audio thread never sees raw JSON.
type Router struct {
	engine *Engine
	out    *LineWriter
}

func NewRouter(e *Engine, out *LineWriter) *Router {
	return &Router{engine: e, out: out}
}

// HandleLine processes one input line. Unparseable lines are dropped.
func (rt *Router) HandleLine(line []byte) {
	if len(line) == 0 {
		return
	}
	var req wireRequest
	if err := json.Unmarshal(line, &req); err != nil {
		if rt.engine.schedulerDebug.Load() {
			logger.Printf("drop unparseable line: %v", err)
		}
		return
	}
	if req.Type != "req" {
		return
	}
	rt.handle(&req)
}

func decodeData[T any](rt *Router, req *wireRequest, msg *T) bool {
	if len(req.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(req.Data, msg); err != nil {
		rt.out.ResErr(req.Op, req.ID, errBadRequest, "malformed data object: "+err.Error())
		return false
	}
	return true
}

func (rt *Router) handle(req *wireRequest) {
	e := rt.engine
	op, id := req.Op, req.ID

	switch op {
	// ------------------------------ Engine ------------------------------
	case "engine.hello":
		rt.out.ResOk(op, id, e.Hello())

	case "engine.ping":
		rt.out.ResOk(op, id, json.RawMessage(req.Data))

	case "engine.state.get":
		rt.out.ResOk(op, id, e.State())

	case "engine.config.get":
		rt.out.ResOk(op, id, e.Config())

	case "engine.config.set":
		var msg engineConfigSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.SampleRate != nil && *msg.SampleRate < MIN_SAMPLE_RATE {
			rt.out.ResErr(op, id, errBadRequest, "sampleRate below 22050")
			return
		}
		if msg.BufferSize != nil && *msg.BufferSize < MIN_BUFFER_SIZE {
			rt.out.ResErr(op, id, errBadRequest, "bufferSize below 64")
			return
		}
		if err := e.ApplyConfig(&msg); err != nil {
			logger.Printf("device reopen failed: %v", err)
			rt.out.Emit("engine.error", wireError{Code: errDeviceFail, Message: err.Error()})
		}
		rt.out.ResOk(op, id, e.Config())
		rt.out.Emit("engine.state", e.State())

	case "engine.shutdown":
		e.Shutdown()
		rt.out.ResOk(op, id, nil)

	case "project.sync":
		e.SetProjectSync(req.Data)
		rt.out.ResOk(op, id, nil)

	// ------------------------------ Scheduler ------------------------------
	case "schedule.clear":
		e.sched.Clear()
		if e.schedulerDebug.Load() {
			logger.Printf("schedule.clear")
		}
		rt.out.ResOk(op, id, nil)

	case "schedule.setWindow":
		var msg scheduleWindowMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		e.sched.SetWindow(msg.FromPpq, msg.ToPpq)
		if e.schedulerDebug.Load() {
			logger.Printf("schedule.setWindow from=%g to=%g", msg.FromPpq, msg.ToPpq)
		}
		rt.out.ResOk(op, id, nil)

	case "schedule.push":
		rt.handleSchedulePush(req)

	// ------------------------------ Transport ------------------------------
	case "transport.play":
		e.Play()
		rt.out.ResOk(op, id, nil)
		rt.out.Emit("transport.state", e.TransportState())

	case "transport.stop":
		e.Stop()
		rt.out.ResOk(op, id, nil)
		rt.out.Emit("transport.state", e.TransportState())

	case "transport.seek":
		var msg transportSeekMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		switch {
		case msg.SamplePos != nil:
			e.SeekSamples(*msg.SamplePos)
		case msg.Ppq != nil:
			e.SeekPpq(*msg.Ppq)
		default:
			e.SeekPpq(0)
		}
		rt.out.ResOk(op, id, nil)
		rt.out.Emit("transport.state", e.TransportState())

	case "transport.setTempo":
		var msg transportTempoMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Bpm == nil {
			rt.out.ResErr(op, id, errBadRequest, "bpm required")
			return
		}
		e.SetTempo(*msg.Bpm)
		rt.out.ResOk(op, id, nil)
		rt.out.Emit("transport.state", e.TransportState())

	case "transport.state.get":
		rt.out.ResOk(op, id, e.TransportState())

	// ------------------------------ Instruments ------------------------------
	case "inst.create":
		var msg instCreateMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.InstID == "" {
			rt.out.ResErr(op, id, errBadRequest, "instId required")
			return
		}
		e.CreateInstrument(msg.InstID, msg.Type)
		rt.out.ResOk(op, id, nil)

	case "inst.param.set":
		var msg instParamSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.InstID == "" {
			rt.out.ResErr(op, id, errBadRequest, "instId required")
			return
		}
		e.SetInstrumentParams(msg.InstID, msg.Type, msg.Params)
		rt.out.ResOk(op, id, nil)

	// ------------------------------ Notes ------------------------------
	case "note.on", "midi.noteOn":
		var msg noteMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Note == nil {
			rt.out.ResErr(op, id, errBadRequest, "note required")
			return
		}
		e.StartTone(defaultInstID(msg.InstID), defaultMixCh(msg.MixCh), *msg.Note, float32(msg.velocity(0.85)))
		rt.out.ResOk(op, id, nil)

	case "note.off", "midi.noteOff":
		var msg noteMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Note == nil {
			rt.out.ResErr(op, id, errBadRequest, "note required")
			return
		}
		e.StopTone(defaultInstID(msg.InstID), defaultMixCh(msg.MixCh), *msg.Note)
		rt.out.ResOk(op, id, nil)

	case "note.allOff", "midi.panic":
		e.PanicVoices()
		rt.out.ResOk(op, id, nil)

	// ------------------------------ Sampler ------------------------------
	case "sampler.load":
		var msg samplerLoadMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.SampleID == "" || msg.Path == "" {
			rt.out.ResErr(op, id, errBadRequest, "sampleId and path required")
			return
		}
		if err := e.LoadSampleFile(msg.SampleID, msg.Path); err != nil {
			rt.out.ResErr(op, id, errLoadFail, err.Error())
			return
		}
		rt.out.ResOk(op, id, nil)

	case "sampler.unload":
		var msg samplerUnloadMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.SampleID == "" {
			rt.out.ResErr(op, id, errBadRequest, "sampleId required")
			return
		}
		e.UnloadSample(msg.SampleID)
		rt.out.ResOk(op, id, nil)

	case "sampler.trigger":
		var msg samplerTriggerMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.SampleID == "" && msg.SamplePath == "" {
			rt.out.ResErr(op, id, errBadRequest, "sampleId or samplePath required")
			return
		}
		if err := e.TriggerSampler(&msg); err != nil {
			rt.out.ResErr(op, id, errTriggerFail, err.Error())
			return
		}
		rt.out.ResOk(op, id, nil)

	// ------------------------------ Programs ------------------------------
	case "program.load":
		rt.handleProgramLoad(req)

	case "program.note.on":
		var msg noteMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Note == nil {
			rt.out.ResErr(op, id, errBadRequest, "note required")
			return
		}
		instID := msg.InstID
		if instID == "" {
			instID = "program"
		}
		if !e.HasProgram(instID) {
			rt.out.ResErr(op, id, errNotLoaded, "program not loaded")
			return
		}
		if err := e.ProgramNoteOn(instID, defaultMixCh(msg.MixCh), *msg.Note, float32(msg.velocity(0.85))); err != nil {
			rt.out.ResErr(op, id, errNotFound, err.Error())
			return
		}
		rt.out.ResOk(op, id, nil)

	case "program.note.off":
		var msg noteMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Note == nil {
			rt.out.ResErr(op, id, errBadRequest, "note required")
			return
		}
		instID := msg.InstID
		if instID == "" {
			instID = "program"
		}
		e.ProgramNoteOff(instID, defaultMixCh(msg.MixCh), *msg.Note)
		rt.out.ResOk(op, id, nil)

	// ------------------------------ Mixer ------------------------------
	case "mixer.init":
		var msg mixerInitMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Channels == nil {
			rt.out.ResErr(op, id, errBadRequest, "channels required")
			return
		}
		e.MixerInit(*msg.Channels)
		rt.out.ResOk(op, id, nil)

	case "mixer.param.set":
		var msg mixerParamSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Param == "" || msg.Value == nil {
			rt.out.ResErr(op, id, errBadRequest, "param and value required")
			return
		}
		if msg.Scope == "master" || msg.Scope == "" {
			e.SetMasterParam(msg.Param, *msg.Value)
		} else {
			e.SetChannelParam(intOr(msg.Ch, 0), msg.Param, *msg.Value)
		}
		rt.out.ResOk(op, id, nil)

	case "mixer.master.set":
		var msg mixerMasterSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Gain != nil {
			e.SetMasterParam("gain", *msg.Gain)
		}
		if msg.Crossfader != nil {
			e.SetMasterParam("crossfader", *msg.Crossfader)
		}
		rt.out.ResOk(op, id, nil)

	case "mixer.channel.set":
		var msg mixerChannelSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		if msg.Ch == nil {
			rt.out.ResErr(op, id, errBadRequest, "ch required")
			return
		}
		e.SetChannelFields(&msg)
		rt.out.ResOk(op, id, nil)

	// ------------------------------ FX ------------------------------
	case "fx.chain.set":
		var msg fxChainSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		e.SetFxChain(msg.Target, msg.Chain)
		rt.out.ResOk(op, id, nil)

	case "fx.param.set":
		var msg fxParamSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		e.SetFxParams(msg.Target, msg.ID, msg.Type, msg.Params)
		rt.out.ResOk(op, id, nil)

	case "fx.bypass.set":
		var msg fxBypassSetMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		e.SetFxBypass(msg.Target, msg.ID, msg.Bypass.or(false))
		rt.out.ResOk(op, id, nil)

	// ------------------------------ Meters ------------------------------
	case "meter.subscribe":
		var msg meterSubscribeMsg
		if !decodeData(rt, req, &msg) {
			return
		}
		e.SubscribeMeters(intOr(msg.Fps, 30), msg.Channels)
		rt.out.ResOk(op, id, nil)

	case "meter.unsubscribe":
		e.UnsubscribeMeters()
		rt.out.ResOk(op, id, nil)

	default:
		rt.out.ResErr(op, id, errUnknownOp, "unknown opcode")
	}
}

func defaultInstID(instID string) string {
	if instID == "" {
		return "global"
	}
	return instID
}

func defaultMixCh(mixCh int) int {
	if mixCh < 1 {
		return 1
	}
	return mixCh
}

// handleSchedulePush parses and queues a batch of timeline events. Sampler
// trigger payloads are parsed here, once, on the control thread.
func (rt *Router) handleSchedulePush(req *wireRequest) {
	var msg schedulePushMsg
	if !decodeData(rt, req, &msg) {
		return
	}
	if msg.Events == nil {
		rt.out.ResErr(req.Op, req.ID, errBadRequest, "schedule.push events[] required")
		return
	}

	events := make([]ScheduledEvent, 0, len(msg.Events))
	for _, raw := range msg.Events {
		var em scheduleEventMsg
		if err := json.Unmarshal(raw, &em); err != nil {
			continue
		}

		ev := ScheduledEvent{
			atPpq:  em.AtPpq,
			kind:   eventKindFromType(strings.ToLower(em.Type)),
			instID: defaultInstID(em.InstID),
			mixCh:  defaultMixCh(intOr(em.MixCh, 1)),
			note:   intOr(em.Note, 60),
			durPpq: floatOr(em.DurPpq, 0.25),
		}
		switch {
		case em.Vel != nil:
			ev.vel = float32(*em.Vel)
		case em.Velocity != nil:
			ev.vel = float32(*em.Velocity)
		default:
			ev.vel = 0.85
		}

		if ev.kind == EVENT_SAMPLER_TRIGGER {
			trigger := new(samplerTriggerMsg)
			src := raw
			if len(em.Payload) > 0 {
				src = em.Payload
			}
			if err := json.Unmarshal(src, trigger); err == nil {
				ev.trigger = trigger
			}
		}
		events = append(events, ev)
	}

	total := rt.engine.sched.Push(events)
	if rt.engine.schedulerDebug.Load() {
		logger.Printf("schedule.push added=%d total=%d", len(events), total)
	}
	rt.out.ResOk(req.Op, req.ID, nil)
}

// handleProgramLoad installs a key-to-sample program from inline zones or a
// manifest file.
func (rt *Router) handleProgramLoad(req *wireRequest) {
	var msg programLoadMsg
	if !decodeData(rt, req, &msg) {
		return
	}

	instID := msg.InstID
	if instID == "" {
		instID = "program"
	}

	mapping := buildProgramMapping(msg.Samples, "", rt.engine.loadSample)
	if len(mapping) == 0 && msg.ProgramPath != "" {
		loaded, err := loadProgramManifest(msg.ProgramPath, rt.engine.loadSample)
		if err != nil {
			rt.out.ResErr(req.Op, req.ID, errLoadFail, err.Error())
			return
		}
		mapping = loaded
	}
	if len(mapping) == 0 {
		rt.out.ResErr(req.Op, req.ID, errLoadFail, "no samples in program")
		return
	}

	rt.engine.InstallProgram(instID, mapping)
	rt.out.ResOk(req.Op, req.ID, nil)
}
