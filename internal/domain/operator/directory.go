package operator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"airtime/internal/core"
	"airtime/internal/domain/notification"

	"gopkg.in/yaml.v3"
)

// Format of a directory source
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// record is one entry of the directory source, keyed the way the historical
// mobile_networks.json file is.
type record struct {
	CountryName       string   `json:"Country Name" yaml:"Country Name"`
	CountryCode       string   `json:"Country Code" yaml:"Country Code"`
	OperatorShort     string   `json:"Operator Short" yaml:"Operator Short"`
	OperatorNumeric   string   `json:"Operator Numeric" yaml:"Operator Numeric"`
	USSDBalance       string   `json:"USSD Balance" yaml:"USSD Balance"`
	USSDTransfer      string   `json:"USSD Transfer" yaml:"USSD Transfer"`
	SubscriberPattern string   `json:"Subscriber Pattern" yaml:"Subscriber Pattern"`
	Identities        []string `json:"Operator Identities" yaml:"Operator Identities"`
	Rules             []struct {
		Prefix string `json:"Prefix" yaml:"Prefix"`
		Type   string `json:"Type" yaml:"Type"`
	} `json:"Notification Rules" yaml:"Notification Rules"`
}

// Directory is the read-only operator catalogue.
type Directory struct {
	defs    []*Definition
	byShort map[string]*Definition
}

// LoadFile loads a directory from a .json, .yaml or .yml file.
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ConfigError{Source: path, Record: -1, Err: err}
	}
	defer f.Close()

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return Load(path, f, format)
}

// Load parses a collection of operator records. source names the input in errors.
func Load(source string, r io.Reader, format Format) (*Directory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &core.ConfigError{Source: source, Record: -1, Err: err}
	}

	var records []record
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &records)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&records)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &core.ConfigError{Source: source, Record: -1, Err: err}
	}
	if len(records) == 0 {
		return nil, &core.ConfigError{Source: source, Record: -1, Err: errors.New("no operator definitions")}
	}

	dir := &Directory{byShort: make(map[string]*Definition, len(records))}
	numerics := make(map[string]int, len(records))
	identities := make(map[string]string)

	for i, rec := range records {
		def, field, err := rec.definition()
		if err != nil {
			return nil, &core.ConfigError{Source: source, Record: i, Field: field, Err: err}
		}
		if _, dup := dir.byShort[def.Short]; dup {
			return nil, &core.ConfigError{Source: source, Record: i, Field: "Operator Short",
				Err: fmt.Errorf("duplicate operator %q", def.Short)}
		}
		if j, dup := numerics[def.Numeric]; dup {
			return nil, &core.ConfigError{Source: source, Record: i, Field: "Operator Numeric",
				Err: fmt.Errorf("numeric id %q already used by record %d", def.Numeric, j)}
		}
		for _, id := range def.Identities {
			if other, dup := identities[id]; dup {
				return nil, &core.ConfigError{Source: source, Record: i, Field: "Operator Identities",
					Err: fmt.Errorf("identity %q already belongs to %q", id, other)}
			}
			identities[id] = def.Short
		}
		numerics[def.Numeric] = i
		dir.byShort[def.Short] = def
		dir.defs = append(dir.defs, def)
	}
	return dir, nil
}

// NewDirectory builds a directory from definitions already in memory.
// Used for fixtures; no validation beyond uniqueness of short names.
func NewDirectory(defs ...*Definition) *Directory {
	dir := &Directory{byShort: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if _, dup := dir.byShort[d.Short]; dup {
			continue
		}
		dir.byShort[d.Short] = d
		dir.defs = append(dir.defs, d)
	}
	return dir
}

// FindByShortName returns the definition stored under exactly name.
func (d *Directory) FindByShortName(name string) (*Definition, error) {
	def, ok := d.byShort[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownOperator, name)
	}
	return def, nil
}

// FindByNotificationIdentity returns the first operator that sends
// notifications from identity.
func (d *Directory) FindByNotificationIdentity(identity string) (*Definition, error) {
	for _, def := range d.defs {
		if def.HasIdentity(identity) {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: no operator uses identity %q", core.ErrUnknownOperator, identity)
}

// All returns the definitions in source order.
func (d *Directory) All() []*Definition {
	out := make([]*Definition, len(d.defs))
	copy(out, d.defs)
	return out
}

// Len returns the number of definitions.
func (d *Directory) Len() int { return len(d.defs) }

func (rec record) definition() (*Definition, string, error) {
	required := []struct{ name, value string }{
		{"Country Code", rec.CountryCode},
		{"Operator Short", rec.OperatorShort},
		{"Operator Numeric", rec.OperatorNumeric},
		{"USSD Balance", rec.USSDBalance},
		{"USSD Transfer", rec.USSDTransfer},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, f.name, errors.New("required field is missing")
		}
	}

	tmpl, err := ParseTemplate(rec.USSDTransfer)
	if err != nil {
		return nil, "USSD Transfer", err
	}

	def := &Definition{
		CountryName:      rec.CountryName,
		CountryCode:      rec.CountryCode,
		Short:            rec.OperatorShort,
		Numeric:          rec.OperatorNumeric,
		BalanceCommand:   rec.USSDBalance,
		TransferTemplate: tmpl,
	}

	if rec.SubscriberPattern != "" {
		re, err := regexp.Compile(rec.SubscriberPattern)
		if err != nil {
			return nil, "Subscriber Pattern", err
		}
		def.SubscriberPattern = re
	}

	for _, id := range rec.Identities {
		if id = strings.TrimSpace(id); id != "" {
			def.Identities = append(def.Identities, id)
		}
	}

	for _, r := range rec.Rules {
		typ, err := notification.ParseType(r.Type)
		if err != nil {
			return nil, "Notification Rules", err
		}
		if r.Prefix == "" {
			return nil, "Notification Rules", errors.New("empty prefix")
		}
		def.Rules = append(def.Rules, notification.Rule{Prefix: r.Prefix, Type: typ})
	}
	return def, "", nil
}
