// Package ops loads run files: a common configuration block plus one
// overlay per simulation, in JSON or YAML.
package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"main/internal/sim"
)

// Loaded is a resolved run file ready for execution.
type Loaded struct {
	// Simulations are fully merged configurations, one per simulation.
	Simulations []sim.Config

	// Deadline bounds the whole run's wall-clock time. Zero disables.
	Deadline time.Duration

	// LogDir is where CSV logs are written. Empty keeps logs in memory.
	LogDir string
}

type fileJSON struct {
	Common          json.RawMessage   `json:"common"`
	Simulations     []json.RawMessage `json:"simulations"`
	DeadlineSeconds float64           `json:"deadlineSeconds"`
	LogDir          string            `json:"logDir"`
}

type fileYAML struct {
	Common          yaml.Node   `yaml:"common"`
	Simulations     []yaml.Node `yaml:"simulations"`
	DeadlineSeconds float64     `yaml:"deadlineSeconds"`
	LogDir          string      `yaml:"logDir"`
}

// Load reads a run file, merging the common block under each simulation
// entry. The format follows the file extension: .yaml/.yml is YAML,
// anything else is JSON.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "load run file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (Loaded, error) {
	var f fileJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return Loaded{}, errors.Wrap(err, "parse run file")
	}
	if len(f.Simulations) == 0 {
		return Loaded{}, errors.New("run file: no simulations")
	}
	out := Loaded{
		Deadline: time.Duration(f.DeadlineSeconds * float64(time.Second)),
		LogDir:   f.LogDir,
	}
	for i, raw := range f.Simulations {
		var cfg sim.Config
		if len(f.Common) > 0 {
			if err := json.Unmarshal(f.Common, &cfg); err != nil {
				return Loaded{}, errors.Wrap(err, "run file: common block")
			}
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Loaded{}, errors.Wrapf(err, "run file: simulation %d", i)
		}
		if err := cfg.Validate(); err != nil {
			return Loaded{}, errors.Wrapf(err, "run file: simulation %d", i)
		}
		out.Simulations = append(out.Simulations, cfg)
	}
	return out, nil
}

func parseYAML(data []byte) (Loaded, error) {
	var f fileYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Loaded{}, errors.Wrap(err, "parse run file")
	}
	if len(f.Simulations) == 0 {
		return Loaded{}, errors.New("run file: no simulations")
	}
	out := Loaded{
		Deadline: time.Duration(f.DeadlineSeconds * float64(time.Second)),
		LogDir:   f.LogDir,
	}
	for i := range f.Simulations {
		var cfg sim.Config
		if f.Common.Kind != 0 {
			if err := f.Common.Decode(&cfg); err != nil {
				return Loaded{}, errors.Wrap(err, "run file: common block")
			}
		}
		if err := f.Simulations[i].Decode(&cfg); err != nil {
			return Loaded{}, errors.Wrapf(err, "run file: simulation %d", i)
		}
		if err := cfg.Validate(); err != nil {
			return Loaded{}, errors.Wrapf(err, "run file: simulation %d", i)
		}
		out.Simulations = append(out.Simulations, cfg)
	}
	return out, nil
}
