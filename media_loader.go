// media_loader.go - Audio file decoding and program manifest parsing

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
	"io"
	"os"
	"path/filepath"

	wav "github.com/youpy/go-wav"
)

// loadSampleFile decodes a WAV file into an immutable in-memory Sample.
// Runs on the control thread, never under the audio mutex.
func loadSampleFile(path string) (*Sample, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sample path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("read wav header %s: %w", path, err)
	}

	channels := int(format.NumChannels)
	if channels < 1 {
		channels = 1
	}

	s := &Sample{
		sampleRate: float64(format.SampleRate),
		data:       make([][]float32, channels),
	}

	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		for _, sample := range samples {
			for ch := 0; ch < channels; ch++ {
				s.data[ch] = append(s.data[ch], float32(r.FloatValue(sample, uint(ch))))
			}
		}
	}

	if s.Frames() == 0 {
		return nil, fmt.Errorf("no audio frames in %s", path)
	}
	return s, nil
}

// programManifest mirrors the zone layouts hosts write: an array under
// "zones", "samples" or "mapping", or a single root-level sample.
type programManifest struct {
	Zones    []programZoneMsg `json:"zones"`
	Samples  []programZoneMsg `json:"samples"`
	Mapping  []programZoneMsg `json:"mapping"`
	RootMidi *int             `json:"rootMidi"`
	Sample   *struct {
		Path         string `json:"path"`
		RelativePath string `json:"relativePath"`
	} `json:"sample"`
}

func zoneNote(z *programZoneMsg) int {
	if z.Note != nil {
		return *z.Note
	}
	if z.RootMidi != nil {
		return *z.RootMidi
	}
	return 60
}

func zonePath(z *programZoneMsg) string {
	if z.Path != "" {
		return z.Path
	}
	if z.SamplePath != "" {
		return z.SamplePath
	}
	if z.Sample != nil {
		if z.Sample.Path != "" {
			return z.Sample.Path
		}
		if z.Sample.RelativePath != "" {
			return z.Sample.RelativePath
		}
	}
	return z.RelativePath
}

// buildProgramMapping decodes every resolvable zone. Zones whose files fail
// to decode are skipped; an empty result is the caller's load failure.
func buildProgramMapping(zones []programZoneMsg, baseDir string, load func(string) (*Sample, error)) map[int]*Sample {
	mapping := make(map[int]*Sample)
	for i := range zones {
		z := &zones[i]
		path := zonePath(z)
		if path == "" {
			continue
		}
		if baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		s, err := load(path)
		if err != nil {
			logger.Printf("program zone %d: %v", zoneNote(z), err)
			continue
		}
		mapping[zoneNote(z)] = s
	}
	return mapping
}

// loadProgramManifest reads a manifest file and decodes its zones, resolving
// relative paths against the manifest's directory.
func loadProgramManifest(path string, load func(string) (*Sample, error)) (map[int]*Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m programManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	zones := m.Zones
	if len(zones) == 0 {
		zones = m.Samples
	}
	if len(zones) == 0 {
		zones = m.Mapping
	}

	mapping := buildProgramMapping(zones, baseDir, load)

	if len(mapping) == 0 && m.Sample != nil {
		root := 60
		if m.RootMidi != nil {
			root = *m.RootMidi
		}
		p := m.Sample.Path
		if p == "" {
			p = m.Sample.RelativePath
		}
		if p != "" {
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			if s, err := load(p); err == nil {
				mapping[root] = s
			}
		}
	}

	if len(mapping) == 0 {
		return nil, fmt.Errorf("no usable zones in %s", path)
	}
	return mapping, nil
}
