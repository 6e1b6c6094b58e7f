// Package yamlkv edits flat YAML mappings such as globals.yml and
// passwords.yml in place.
//
// Edits go through the yaml.v3 node tree, so comments, key order and the
// quoting style of untouched entries survive a round trip.
package yamlkv

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Doc is a parsed top-level YAML mapping.
type Doc struct {
	// raw is kept for documents holding only comments, which yaml.v3
	// decodes to an empty node.
	raw  []byte
	root *yaml.Node

	// appendRaw is set when root was created by Set on top of raw.
	appendRaw bool
}

// Parse decodes data. Empty and comment-only documents are valid and
// behave as an empty mapping.
func Parse(data []byte) (*Doc, error) {
	d := &Doc{raw: data}
	if len(bytes.TrimSpace(data)) == 0 {
		return d, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return d, nil
	}
	if node.Kind != yaml.DocumentNode || node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}
	d.root = &node
	return d, nil
}

func (d *Doc) mapping() *yaml.Node {
	if d.root == nil {
		return nil
	}
	return d.root.Content[0]
}

// lookup returns the value node for key.
func (d *Doc) lookup(key string) *yaml.Node {
	m := d.mapping()
	if m == nil {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Get returns the value for key. Null values read as "". Non-scalar
// values are returned in flow-free YAML form.
func (d *Doc) Get(key string) (string, bool) {
	v := d.lookup(key)
	if v == nil {
		return "", false
	}
	return nodeString(v), true
}

func nodeString(v *yaml.Node) string {
	if v.Kind == yaml.ScalarNode {
		if v.Tag == "!!null" {
			return ""
		}
		return v.Value
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Set stores value under key as a string, replacing any previous value
// in place. New keys are appended.
//
// Replacing in place keeps the key's position, its head comment and the
// value's trailing comment, so a hand-maintained globals.yml still reads
// the same after "property set". The !!str tag makes values such as
// "yes" or "1" round-trip as strings rather than bools or ints.
func (d *Doc) Set(key, value string) {
	if v := d.lookup(key); v != nil {
		// Keep quoting style for scalars. A sequence or mapping value is
		// collapsed to a plain scalar.
		style := v.Style
		if v.Kind != yaml.ScalarNode {
			style = 0
		}
		*v = yaml.Node{
			Kind:        yaml.ScalarNode,
			Tag:         "!!str",
			Value:       value,
			Style:       style,
			LineComment: v.LineComment,
		}
		return
	}

	// An empty or comment-only document has no mapping yet. Build one and
	// remember to append it after the original text when marshalling.
	if d.root == nil {
		d.appendRaw = true
		d.root = &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	m := d.mapping()
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// Delete removes key and reports whether it was present.
func (d *Doc) Delete(key string) bool {
	m := d.mapping()
	if m == nil {
		return false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return true
		}
	}
	return false
}

// Keys returns the mapping keys sorted.
func (d *Doc) Keys() []string {
	m := d.mapping()
	if m == nil {
		return []string{}
	}
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	sort.Strings(keys)
	return keys
}

// Map returns all entries as strings.
func (d *Doc) Map() map[string]string {
	m := d.mapping()
	out := map[string]string{}
	if m == nil {
		return out
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		out[m.Content[i].Value] = nodeString(m.Content[i+1])
	}
	return out
}

// Marshal encodes the document. Comment-only documents keep their text
// with new entries appended after it.
func (d *Doc) Marshal() ([]byte, error) {
	if d.root == nil {
		return d.raw, nil
	}

	var buf bytes.Buffer
	if d.appendRaw {
		buf.Write(d.raw)
		if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteByte('\n')
		}
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
