// main.go - Entry point: flags, engine construction and the stdin request loop

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
	"bufio"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// Input lines are single JSON objects; project.sync payloads can be large.
const maxRequestLine = 16 << 20

func boilerPlate() {
	fmt.Fprintln(os.Stderr, ENGINE_NAME+" "+ENGINE_VERSION+" ("+PROTOCOL_NAME+")")
	fmt.Fprintln(os.Stderr, "(c) 2024 - 2026 Zayn Otley")
	fmt.Fprintln(os.Stderr, "https://github.com/IntuitionAmiga/SaladeEngine")
	fmt.Fprintln(os.Stderr, "License: GPLv3 or later")
}

func main() {
	var (
		sampleRate = flag.Float64("rate", DEFAULT_SR, "engine sample rate in Hz")
		bufferSize = flag.Int("buffer", DEFAULT_BUFSIZE, "device buffer size in frames")
		channels   = flag.Int("channels", DEFAULT_CHANS, "initial mixer channel count")
		quiet      = flag.Bool("quiet", false, "suppress the startup banner")
	)
	flag.Parse()

	if !*quiet {
		boilerPlate()
	}

	engine := NewEngine()
	out := NewLineWriter(os.Stdout)

	if *sampleRate >= MIN_SAMPLE_RATE {
		engine.sampleRate = *sampleRate
	}
	if *bufferSize >= MIN_BUFFER_SIZE {
		engine.bufferSize = *bufferSize
	}
	engine.MixerInit(*channels)

	if err := engine.OpenDevice(); err != nil {
		// The engine stays alive with ready=false; the host decides.
		logger.Printf("%v", err)
		out.Emit("engine.error", wireError{Code: errDeviceFail, Message: err.Error()})
	}

	out.Emit("engine.state", engine.State())
	out.Emit("transport.state", engine.TransportState())

	var group errgroup.Group
	group.Go(func() error {
		RunTelemetry(engine, out)
		return nil
	})

	router := NewRouter(engine, out)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), maxRequestLine)

	for engine.IsRunning() && scanner.Scan() {
		router.HandleLine(scanner.Bytes())
	}

	engine.Shutdown()
	engine.CloseDevice()
	group.Wait()
}
