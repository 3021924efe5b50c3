// Package hotstart persists the routing state of a running simulation
// and restores it as the initial condition of a later one. Files are
// versioned and stamped with a topology code; a snapshot from a
// different network or routing model is rejected before any state is
// touched. Saves are atomic: a temp file is renamed into place so a
// crash can never leave a torn snapshot.
package hotstart

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
)

// FileVersion identifies the snapshot layout.
const FileVersion int32 = 2

// Save writes the current routing state of every node and link.
func Save(p *project.Project, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".hot*")
	if err != nil {
		return errs.New(errs.ErrHotstartOpen)
	}
	tmpName := tmp.Name()
	fail := func() error {
		tmp.Close()
		os.Remove(tmpName)
		return errs.New(errs.ErrHotstartOpen)
	}

	put := func(v interface{}) error {
		return binary.Write(tmp, binary.LittleEndian, v)
	}
	if err := put(FileVersion); err != nil {
		return fail()
	}
	if err := put(p.TopoCode()); err != nil {
		return fail()
	}
	np := len(p.Pollut)
	for i := range p.Nodes {
		n := &p.Nodes[i]
		state := []float64{n.NewDepth, n.NewVolume}
		if err := put(state); err != nil {
			return fail()
		}
		for j := 0; j < np; j++ {
			if err := put(n.NewQual[j]); err != nil {
				return fail()
			}
		}
	}
	for i := range p.Links {
		l := &p.Links[i]
		state := []float64{l.NewFlow, l.NewDepth, l.Setting}
		if err := put(state); err != nil {
			return fail()
		}
		for j := 0; j < np; j++ {
			if err := put(l.NewQual[j]); err != nil {
				return fail()
			}
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.New(errs.ErrHotstartOpen)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errs.New(errs.ErrHotstartOpen)
	}
	return nil
}

// Check opens a snapshot and verifies its version and topology against
// the current project without reading any state. Returns the file
// version on success.
func Check(p *project.Project, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errs.New(errs.ErrHotstartOpen)
	}
	defer f.Close()
	v, err := readHeader(p, f)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func readHeader(p *project.Project, f *os.File) (int32, error) {
	var version int32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return 0, errs.New(errs.ErrHotstartFormat)
	}
	if version != FileVersion {
		return 0, errs.New(errs.ErrHotstartFormat)
	}
	var topo [4]int32
	if err := binary.Read(f, binary.LittleEndian, &topo); err != nil {
		return 0, errs.New(errs.ErrHotstartFormat)
	}
	if topo != p.TopoCode() {
		return 0, errs.New(errs.ErrHotstartTopo)
	}
	return version, nil
}

// Load restores node and link state from a snapshot. The project's
// topology must already have been validated against the file.
func Load(p *project.Project, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.New(errs.ErrHotstartOpen)
	}
	defer f.Close()
	if _, err := readHeader(p, f); err != nil {
		return err
	}

	get := func(dst interface{}) error {
		if err := binary.Read(f, binary.LittleEndian, dst); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return errs.New(errs.ErrHotstartFormat)
			}
			return errs.New(errs.ErrHotstartOpen)
		}
		return nil
	}
	np := len(p.Pollut)
	for i := range p.Nodes {
		n := &p.Nodes[i]
		var state [2]float64
		if err := get(&state); err != nil {
			return err
		}
		n.NewDepth, n.NewVolume = state[0], state[1]
		n.OldDepth, n.OldVolume = state[0], state[1]
		for j := 0; j < np; j++ {
			if err := get(&n.NewQual[j]); err != nil {
				return err
			}
		}
	}
	for i := range p.Links {
		l := &p.Links[i]
		var state [3]float64
		if err := get(&state); err != nil {
			return err
		}
		l.NewFlow, l.NewDepth, l.Setting = state[0], state[1], state[2]
		l.OldFlow, l.OldDepth = state[0], state[1]
		l.TargetSetting = l.Setting
		for j := 0; j < np; j++ {
			if err := get(&l.NewQual[j]); err != nil {
				return err
			}
		}
	}
	return nil
}
