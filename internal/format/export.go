// Package format renders a service's secrets as export documents and reads
// them back.
//
// Six output formats are supported (json, yaml, csv, tsv, dotenv, tfvars).
// Only JSON is accepted on import: a YAML export is for people, not for
// round trips.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/chamber/internal/errors"
)

// Supported export format names.
const (
	JSON   = "json"
	YAML   = "yaml"
	CSV    = "csv"
	TSV    = "tsv"
	Dotenv = "dotenv"
	TFVars = "tfvars"
)

// Formats lists every export format in help order.
var Formats = []string{JSON, YAML, CSV, TSV, Dotenv, TFVars}

// Pair is one entry of a Document.
type Pair struct {
	Key   string
	Value string
}

// Document is an ordered key/value table.
type Document []Pair

// FromMap builds a Document sorted by key.
func FromMap(m map[string]string) Document {
	doc := make(Document, 0, len(m))
	for k, v := range m {
		doc = append(doc, Pair{Key: k, Value: v})
	}
	sort.Slice(doc, func(i, j int) bool { return doc[i].Key < doc[j].Key })
	return doc
}


func (d Document) sorted() Document {
	out := make(Document, len(d))
	copy(out, d)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Options tune JSON output. Every other format is always sorted.
type Options struct {
	Compact  bool
	SortKeys bool
}

// DefaultOptions returns indented, sorted JSON.
func DefaultOptions() Options {
	return Options{SortKeys: true}
}

// Supported reports whether name is an export format.
func Supported(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

// Export renders doc in the named format to w. Output always ends in a newline.
func Export(w io.Writer, name string, doc Document, opts Options) error {
	var (
		out []byte
		err error
	)
	switch name {
	case JSON:
		if opts.SortKeys {
			doc = doc.sorted()
		}
		out, err = renderJSON(doc, opts.Compact)
	case YAML:
		out, err = renderYAML(doc)
	case CSV:
		out = renderLines(doc.sorted(), func(p Pair) string {
			return p.Key + "," + quoteIf(p.Value, ",", "'")
		})
	case TSV:
		out = renderLines(doc.sorted(), func(p Pair) string {
			return p.Key + "\t" + quoteIf(p.Value, "\t", "'")
		})
	case Dotenv:
		out = renderLines(doc.sorted(), func(p Pair) string {
			return strings.ToUpper(p.Key) + `="` + p.Value + `"`
		})
	case TFVars:
		out = renderLines(doc.sorted(), func(p Pair) string {
			return p.Key + ` = "` + p.Value + `"`
		})
	default:
		return dserrors.UnknownFormatError{Format: name}
	}
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err = w.Write(out)
	return err
}

// quoteIf wraps value in quote when it contains any of delims.
func quoteIf(value, delims, quote string) string {
	if strings.ContainsAny(value, delims) {
		return quote + value + quote
	}
	return value
}

func renderLines(doc Document, line func(Pair) string) []byte {
	lines := make([]string, len(doc))
	for i, p := range doc {
		lines[i] = line(p)
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func jsonString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func renderJSON(doc Document, compact bool) ([]byte, error) {
	if len(doc) == 0 {
		return []byte("{}\n"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range doc {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !compact {
			buf.WriteString("\n  ")
		}
		k, err := jsonString(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := jsonString(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		if compact {
			buf.WriteByte(':')
		} else {
			buf.WriteString(": ")
		}
		buf.Write(v)
	}
	if !compact {
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func renderYAML(doc Document) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range doc.sorted() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	if len(node.Content) == 0 {
		return []byte("{}\n"), nil
	}
	return yaml.Marshal(node)
}
