// Package manifest handles strict.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "strict.toml"

// Manifest represents a strict.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Run     Run     `toml:"run"`
	VM      VM      `toml:"vm"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the strict.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Run selects what the CLI executes.
type Run struct {
	Program string `toml:"program"`
	Entry   string `toml:"entry"`
}

// VM configures execution.
type VM struct {
	Trace  bool `toml:"trace"`
	Disasm bool `toml:"disasm"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses a strict.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Run.Program == "" {
		m.Run.Program = "main.yml"
	}
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a strict.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ProgramPath returns the absolute path of the program file.
func (m *Manifest) ProgramPath() string {
	if filepath.IsAbs(m.Run.Program) {
		return m.Run.Program
	}
	return filepath.Join(m.Dir, m.Run.Program)
}

// LogPath returns the absolute path of the log file, or "" for stderr.
func (m *Manifest) LogPath() string {
	if m.Log.File == "" || filepath.IsAbs(m.Log.File) {
		return m.Log.File
	}
	return filepath.Join(m.Dir, m.Log.File)
}
