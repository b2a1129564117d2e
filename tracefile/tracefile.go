// Package tracefile reads and writes traces as documents, so they can be
// authored on disk and fed to the checker. Three encodings are supported:
// YAML, JSON, and JSONC (JSON extended with comments and trailing commas)
// for hand-written files. Documents use symbolic names; loading runs them
// through a TraceBuilder, which assigns IDs and validates name use.
package tracefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bedoyama/borrowcheck"
)

// Version is the document version this package writes and the only one it
// accepts (a missing version means the same thing).
const Version = 1

// Document is the on-disk form of a trace.
type Document struct {
	Version int           `json:"version" yaml:"version"`
	Name    string        `json:"name,omitempty" yaml:"name,omitempty"`
	Events  []EventRecord `json:"events" yaml:"events"`
}

// EventRecord is one trace event, or a nested scope of them. Which name
// fields are required depends on Op; see the op table in opApply.
type EventRecord struct {
	Op       string        `json:"op" yaml:"op"`
	Owner    string        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Target   string        `json:"target,omitempty" yaml:"target,omitempty"`
	Accessor string        `json:"accessor,omitempty" yaml:"accessor,omitempty"`
	Parent   string        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Scope    string        `json:"scope,omitempty" yaml:"scope,omitempty"`
	Events   []EventRecord `json:"events,omitempty" yaml:"events,omitempty"`
}

// Format names a supported trace file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatJSONC
)

// FormatForPath picks the encoding from a file extension.
func FormatForPath(path string) (Format, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonc":
		return FormatJSONC, nil
	default:
		return 0, fmt.Errorf("unsupported trace file extension %q", filepath.Ext(path))
	}
}

// Load reads a trace file, picking the encoding from its extension.
func Load(path string) (*borrowcheck.Trace, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	trace, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trace, nil
}

// Parse decodes a trace document and builds the trace it describes.
func Parse(data []byte, format Format) (*borrowcheck.Trace, error) {
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return doc.Trace()
}

// ParseDocument decodes a document without building the trace.
func ParseDocument(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	case FormatJSONC:
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, fmt.Errorf("jsonc unmarshal: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %d", int(format))
	}
	if doc.Version != 0 && doc.Version != Version {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	return &doc, nil
}

// Trace builds the trace a document describes.
func (d *Document) Trace() (*borrowcheck.Trace, error) {
	b := borrowcheck.NewTraceBuilder()
	if err := applyRecords(b, d.Events); err != nil {
		return nil, err
	}
	trace, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("building trace: %w", err)
	}
	return trace, nil
}

func applyRecords(b *borrowcheck.TraceBuilder, records []EventRecord) error {
	for i, rec := range records {
		if err := opApply(b, rec); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, rec.Op, err)
		}
	}
	return nil
}

// opApply maps one record onto the builder. Scope records recurse.
func opApply(b *borrowcheck.TraceBuilder, rec EventRecord) error {
	switch rec.Op {
	case "create-owner":
		b.Owner(rec.Owner)
	case "destroy-owner":
		b.Destroy(rec.Owner)
	case "move":
		b.Move(rec.Owner, rec.Target)
	case "move-out":
		b.MoveOut(rec.Owner, rec.Target)
	case "copy":
		b.Copy(rec.Owner, rec.Target)
	case "shared":
		b.Shared(rec.Accessor, rec.Owner)
	case "exclusive":
		b.Exclusive(rec.Accessor, rec.Owner)
	case "derive-shared":
		b.DeriveShared(rec.Accessor, rec.Parent)
	case "derive-exclusive":
		b.DeriveExclusive(rec.Accessor, rec.Parent)
	case "read":
		b.Read(rec.Accessor)
	case "write":
		b.Write(rec.Accessor)
	case "drop":
		b.Drop(rec.Accessor)
	case "read-value":
		b.ReadValue(rec.Owner)
	case "write-value":
		b.WriteValue(rec.Owner)
	case "scope":
		var inner error
		run := func(b *borrowcheck.TraceBuilder) {
			inner = applyRecords(b, rec.Events)
		}
		if rec.Scope != "" {
			b.ScopeNamed(rec.Scope, run)
		} else {
			b.Scope(run)
		}
		return inner
	default:
		return fmt.Errorf("unknown op %q", rec.Op)
	}
	return nil
}

// DocumentFor renders a trace back into document form, using the trace's
// symbolic names. It fails on traces with unbalanced scope events, which
// have no nested representation.
func DocumentFor(t *borrowcheck.Trace) (*Document, error) {
	doc := &Document{Version: Version}
	stack := []*[]EventRecord{&doc.Events}
	top := func() *[]EventRecord { return stack[len(stack)-1] }

	for i, ev := range t.Events {
		var rec EventRecord
		switch ev.Kind {
		case borrowcheck.CreateOwner:
			rec = EventRecord{Op: "create-owner", Owner: t.OwnerName(ev.Owner)}
		case borrowcheck.DestroyOwner:
			rec = EventRecord{Op: "destroy-owner", Owner: t.OwnerName(ev.Owner)}
		case borrowcheck.MoveOwner:
			rec = EventRecord{Op: "move", Owner: t.OwnerName(ev.Owner), Target: t.OwnerName(ev.Target)}
		case borrowcheck.MoveOwnerOut:
			rec = EventRecord{Op: "move-out", Owner: t.OwnerName(ev.Owner), Target: t.OwnerName(ev.Target)}
		case borrowcheck.CopyOwner:
			rec = EventRecord{Op: "copy", Owner: t.OwnerName(ev.Owner), Target: t.OwnerName(ev.Target)}
		case borrowcheck.CreateShared:
			rec = EventRecord{Op: "shared", Accessor: t.AccessorName(ev.Accessor), Owner: t.OwnerName(ev.Owner)}
		case borrowcheck.CreateExclusive:
			rec = EventRecord{Op: "exclusive", Accessor: t.AccessorName(ev.Accessor), Owner: t.OwnerName(ev.Owner)}
		case borrowcheck.DeriveShared:
			rec = EventRecord{Op: "derive-shared", Accessor: t.AccessorName(ev.Accessor), Parent: t.AccessorName(ev.Parent)}
		case borrowcheck.DeriveExclusive:
			rec = EventRecord{Op: "derive-exclusive", Accessor: t.AccessorName(ev.Accessor), Parent: t.AccessorName(ev.Parent)}
		case borrowcheck.Use:
			op := "read"
			if ev.Mode == borrowcheck.Write {
				op = "write"
			}
			rec = EventRecord{Op: op, Accessor: t.AccessorName(ev.Accessor)}
		case borrowcheck.DestroyAccessor:
			rec = EventRecord{Op: "drop", Accessor: t.AccessorName(ev.Accessor)}
		case borrowcheck.ReadOwner:
			rec = EventRecord{Op: "read-value", Owner: t.OwnerName(ev.Owner)}
		case borrowcheck.WriteOwner:
			rec = EventRecord{Op: "write-value", Owner: t.OwnerName(ev.Owner)}
		case borrowcheck.EnterScope:
			*top() = append(*top(), EventRecord{Op: "scope", Scope: t.ScopeName(ev.Scope)})
			last := &(*top())[len(*top())-1]
			stack = append(stack, &last.Events)
			continue
		case borrowcheck.ExitScope:
			if len(stack) == 1 {
				return nil, fmt.Errorf("event %d: scope exit without open scope", i)
			}
			stack = stack[:len(stack)-1]
			continue
		default:
			return nil, fmt.Errorf("event %d: kind %s has no document form", i, ev.Kind)
		}
		*top() = append(*top(), rec)
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("trace ends with %d open scope(s)", len(stack)-1)
	}
	return doc, nil
}

// Encode renders a trace in the given encoding. JSONC is an input-only
// convenience and encodes as plain JSON.
func Encode(t *borrowcheck.Trace, format Format) ([]byte, error) {
	doc, err := DocumentFor(t)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("yaml marshal: %w", err)
		}
		return data, nil
	case FormatJSON, FormatJSONC:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown format %d", int(format))
	}
}

// Save writes a trace to path, picking the encoding from its extension.
func Save(path string, t *borrowcheck.Trace) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(t, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
