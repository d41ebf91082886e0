package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// preset is a named bundle of generation parameters loaded from the
// presets YAML file
type preset struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Prompt          string `yaml:"prompt"`
	Model           string `yaml:"model"`
	NegativePrompt  string `yaml:"negativePrompt"`
	AspectRatio     string `yaml:"aspectRatio"`
	Resolution      string `yaml:"resolution"`
	DurationSeconds int    `yaml:"durationSeconds"`
}

type presetFile struct {
	Presets []preset `yaml:"presets"`
}

// loadPresets reads the presets file and indexes presets by name
func loadPresets(path string) (map[string]*preset, error) {
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read presets file", goerr.V("path", path))
	}

	var file presetFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse presets file", goerr.V("path", path))
	}

	presets := make(map[string]*preset)
	for i := range file.Presets {
		p := &file.Presets[i]
		if p.Name == "" {
			return nil, goerr.New("preset without a name", goerr.V("index", i))
		}
		if _, ok := presets[p.Name]; ok {
			return nil, goerr.New("duplicate preset name", goerr.V("name", p.Name))
		}
		presets[p.Name] = p
	}

	return presets, nil
}

// resolvePreset fetches one preset by name from the configured file
func (cfg *config) resolvePreset(name string) (*preset, error) {
	if name == "" {
		return nil, nil
	}
	if cfg.presetsFile == "" {
		return nil, goerr.New("preset requested but no presets file configured",
			goerr.V("preset", name))
	}

	presets, err := loadPresets(cfg.presetsFile)
	if err != nil {
		return nil, err
	}

	p, ok := presets[name]
	if !ok {
		return nil, goerr.New("unknown preset", goerr.V("preset", name))
	}
	return p, nil
}

func presetsCommand() *cli.Command {
	var cfg config

	flags := presetFlags(&cfg)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "presets",
		Usage: "List available prompt presets",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if cfg.presetsFile == "" {
				return goerr.New("presets-file is required")
			}

			presets, err := loadPresets(cfg.presetsFile)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(presets))
			for name := range presets {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				p := presets[name]
				fmt.Fprintf(c.Root().Writer, "%-20s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}
