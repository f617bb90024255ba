package netlist

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/retime/timing/latency"
)

// ReadJSON decodes and validates a circuit in JSON form.
func ReadJSON(r io.Reader) (*Circuit, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var c Circuit
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON netlist")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteJSON encodes c as indented JSON.
func WriteJSON(w io.Writer, c *Circuit) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode JSON netlist")
	}
	return nil
}

// ReadYAML decodes and validates a circuit in YAML form.
func ReadYAML(r io.Reader) (*Circuit, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Circuit
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML netlist")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteYAML encodes c as YAML.
func WriteYAML(w io.Writer, c *Circuit) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode YAML netlist")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "failed to flush YAML netlist")
	}
	return nil
}

// Load reads a circuit from path. The format follows the extension: .json,
// .yaml or .yml, or .bench. Gate delays of .bench files come from table; a
// nil table uses the default delays.
func Load(path string, table *latency.Table) (*Circuit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open netlist")
	}
	defer func() { _ = f.Close() }()

	var c *Circuit
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		c, err = ReadJSON(f)
	case ".yaml", ".yml":
		c, err = ReadYAML(f)
	case ".bench":
		if table == nil {
			table = latency.NewTable()
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		c, err = ReadBench(f, name, table)
	default:
		return nil, errors.Errorf("unsupported netlist format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	return c, nil
}

// Save writes c to path as JSON or YAML depending on the extension.
func Save(path string, c *Circuit) error {
	var write func(io.Writer, *Circuit) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		write = WriteJSON
	case ".yaml", ".yml":
		write = WriteYAML
	default:
		return errors.Errorf("unsupported netlist format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create netlist file")
	}
	if err := write(f, c); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "failed to close netlist file")
}
