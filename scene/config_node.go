// Package scene holds the editable data side of a world: ConfigNode trees loaded from YAML or
// JSON, prefabs built from them, and the factory that keeps a World in sync with a prefab.
package scene

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// NodeType is the kind of value a ConfigNode holds.
type NodeType uint8

const (
	Undefined NodeType = iota
	Scalar
	Map
	Sequence
)

func (t NodeType) String() string {
	switch t {
	case Scalar:
		return "scalar"
	case Map:
		return "map"
	case Sequence:
		return "sequence"
	default:
		return "undefined"
	}
}

// ConfigNode is a tree of maps, sequences and scalars. The zero value is an undefined node.
// Map keys keep the order they were inserted or loaded in.
type ConfigNode struct {
	kind   NodeType
	value  any
	keys   []string
	fields map[string]*ConfigNode
	items  []*ConfigNode
}

// NewMap returns an empty map node.
func NewMap() *ConfigNode {
	return &ConfigNode{kind: Map, fields: make(map[string]*ConfigNode)}
}

// NewSequence returns a sequence node holding items.
func NewSequence(items ...*ConfigNode) *ConfigNode {
	return &ConfigNode{kind: Sequence, items: items}
}

// NewScalar returns a scalar node. A nil value yields an undefined node.
func NewScalar(value any) *ConfigNode {
	if value == nil {
		return &ConfigNode{}
	}
	return &ConfigNode{kind: Scalar, value: value}
}

// FromValue converts plain Go values (maps, slices, scalars) into a tree. Map keys are sorted.
func FromValue(v any) *ConfigNode {
	switch v := v.(type) {
	case nil:
		return &ConfigNode{}
	case *ConfigNode:
		return v.Clone()
	case map[string]any:
		node := NewMap()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			node.Set(k, FromValue(v[k]))
		}
		return node
	case []any:
		node := NewSequence()
		for _, item := range v {
			node.Append(FromValue(item))
		}
		return node
	default:
		return NewScalar(v)
	}
}

func (n *ConfigNode) Type() NodeType {
	if n == nil {
		return Undefined
	}
	return n.kind
}

func (n *ConfigNode) IsUndefined() bool {
	return n.Type() == Undefined
}

// Get returns the child stored under key. Missing keys, and lookups on non-map nodes, return a
// detached undefined node.
func (n *ConfigNode) Get(key string) *ConfigNode {
	if n.Type() == Map {
		if child, ok := n.fields[key]; ok {
			return child
		}
	}
	return &ConfigNode{}
}

// Has reports whether the map node has key.
func (n *ConfigNode) Has(key string) bool {
	if n.Type() != Map {
		return false
	}
	_, ok := n.fields[key]
	return ok
}

// Set stores child under key, turning an undefined node into a map. Setting a key on a scalar or
// sequence panics.
func (n *ConfigNode) Set(key string, child *ConfigNode) {
	switch n.kind {
	case Undefined:
		n.kind = Map
		n.fields = make(map[string]*ConfigNode)
	case Map:
	default:
		panic(eris.Errorf("cannot set key %q on a %s node", key, n.kind))
	}
	if child == nil {
		child = &ConfigNode{}
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
}

// Delete removes key from a map node.
func (n *ConfigNode) Delete(key string) {
	if n.Type() != Map {
		return
	}
	if _, ok := n.fields[key]; !ok {
		return
	}
	delete(n.fields, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
}

// Keys returns the keys of a map node in order.
func (n *ConfigNode) Keys() []string {
	if n.Type() != Map {
		return nil
	}
	return slices.Clone(n.keys)
}

// Append adds child to the end of the sequence, turning an undefined node into a sequence.
func (n *ConfigNode) Append(child *ConfigNode) {
	switch n.kind {
	case Undefined:
		n.kind = Sequence
	case Sequence:
	default:
		panic(eris.Errorf("cannot append to a %s node", n.kind))
	}
	if child == nil {
		child = &ConfigNode{}
	}
	n.items = append(n.items, child)
}

// Items returns the children of a sequence node. The nodes are shared with the tree.
func (n *ConfigNode) Items() []*ConfigNode {
	if n.Type() != Sequence {
		return nil
	}
	return n.items
}

func (n *ConfigNode) Len() int {
	switch n.Type() {
	case Map:
		return len(n.keys)
	case Sequence:
		return len(n.items)
	default:
		return 0
	}
}

// Value returns the scalar value, or nil.
func (n *ConfigNode) Value() any {
	if n.Type() != Scalar {
		return nil
	}
	return n.value
}

// AsString returns the scalar as a string, or def when the node is not a scalar.
func (n *ConfigNode) AsString(def string) string {
	if n.Type() != Scalar {
		return def
	}
	switch v := n.value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// AsInt returns the scalar as an int, or def when it is not numeric.
func (n *ConfigNode) AsInt(def int) int {
	if n.Type() != Scalar {
		return def
	}
	switch v := n.value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// AsFloat returns the scalar as a float64, or def when it is not numeric.
func (n *ConfigNode) AsFloat(def float64) float64 {
	if n.Type() != Scalar {
		return def
	}
	switch v := n.value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// AsBool returns the scalar as a bool, or def.
func (n *ConfigNode) AsBool(def bool) bool {
	if n.Type() != Scalar {
		return def
	}
	switch v := n.value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Clone returns a deep copy of the node.
func (n *ConfigNode) Clone() *ConfigNode {
	if n == nil {
		return &ConfigNode{}
	}
	out := &ConfigNode{kind: n.kind, value: n.value}
	switch n.kind {
	case Map:
		out.keys = slices.Clone(n.keys)
		out.fields = make(map[string]*ConfigNode, len(n.fields))
		for k, child := range n.fields {
			out.fields[k] = child.Clone()
		}
	case Sequence:
		out.items = make([]*ConfigNode, len(n.items))
		for i, child := range n.items {
			out.items[i] = child.Clone()
		}
	default:
	}
	return out
}

// Equal reports whether two trees hold the same data. Map key order is ignored.
func (n *ConfigNode) Equal(other *ConfigNode) bool {
	if n.Type() != other.Type() {
		return false
	}
	switch n.Type() {
	case Scalar:
		return n.AsString("") == other.AsString("")
	case Map:
		if len(n.fields) != len(other.fields) {
			return false
		}
		for k, child := range n.fields {
			if !child.Equal(other.fields[k]) {
				return false
			}
		}
	case Sequence:
		if len(n.items) != len(other.items) {
			return false
		}
		for i, child := range n.items {
			if !child.Equal(other.items[i]) {
				return false
			}
		}
	default:
	}
	return true
}

// Interface converts the tree back into plain Go maps, slices and scalars.
func (n *ConfigNode) Interface() any {
	switch n.Type() {
	case Scalar:
		return n.value
	case Map:
		out := make(map[string]any, len(n.fields))
		for k, child := range n.fields {
			out[k] = child.Interface()
		}
		return out
	case Sequence:
		out := make([]any, len(n.items))
		for i, child := range n.items {
			out[i] = child.Interface()
		}
		return out
	default:
		return nil
	}
}

// Decode stores the tree into out, which must be a pointer, using JSON field rules.
func (n *ConfigNode) Decode(out any) error {
	data, err := n.MarshalJSON()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "failed to decode node into %T", out)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler and keeps mapping order.
func (n *ConfigNode) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.DocumentNode:
		if len(value.Content) == 0 {
			*n = ConfigNode{}
			return nil
		}
		return n.UnmarshalYAML(value.Content[0])
	case yaml.AliasNode:
		return n.UnmarshalYAML(value.Alias)
	case yaml.MappingNode:
		*n = *NewMap()
		for i := 0; i+1 < len(value.Content); i += 2 {
			child := &ConfigNode{}
			if err := child.UnmarshalYAML(value.Content[i+1]); err != nil {
				return err
			}
			n.Set(value.Content[i].Value, child)
		}
		return nil
	case yaml.SequenceNode:
		*n = *NewSequence()
		for _, item := range value.Content {
			child := &ConfigNode{}
			if err := child.UnmarshalYAML(item); err != nil {
				return err
			}
			n.Append(child)
		}
		return nil
	case yaml.ScalarNode:
		var v any
		if err := value.Decode(&v); err != nil {
			return eris.Wrapf(err, "invalid scalar at line %d", value.Line)
		}
		*n = *NewScalar(v)
		return nil
	default:
		return eris.Errorf("unsupported yaml node kind %d at line %d", value.Kind, value.Line)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (n *ConfigNode) MarshalYAML() (any, error) {
	return n.yamlNode()
}

func (n *ConfigNode) yamlNode() (*yaml.Node, error) {
	switch n.Type() {
	case Map:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.keys {
			child, err := n.fields[k].yamlNode()
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return out, nil
	case Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			child, err := item.yamlNode()
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, child)
		}
		return out, nil
	case Scalar:
		out := &yaml.Node{}
		if err := out.Encode(n.value); err != nil {
			return nil, eris.Wrap(err, "failed to encode scalar")
		}
		return out, nil
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Object keys are sorted since JSON objects carry no
// order once decoded.
func (n *ConfigNode) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return eris.Wrap(err, "invalid json")
	}
	*n = *FromValue(v)
	return nil
}

// MarshalJSON implements json.Marshaler, writing map keys in node order.
func (n *ConfigNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *ConfigNode) writeJSON(buf *bytes.Buffer) error {
	switch n.Type() {
	case Map:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return eris.Wrap(err, "failed to encode key")
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := n.fields[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Sequence:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Scalar:
		data, err := json.Marshal(n.value)
		if err != nil {
			return eris.Wrapf(err, "failed to encode scalar %v", n.value)
		}
		buf.Write(data)
	default:
		buf.WriteString("null")
	}
	return nil
}

// ParseYAML reads a tree from YAML.
func ParseYAML(data []byte) (*ConfigNode, error) {
	node := &ConfigNode{}
	if err := yaml.Unmarshal(data, node); err != nil {
		return nil, eris.Wrap(err, "failed to parse yaml")
	}
	return node, nil
}

// ParseJSON reads a tree from JSON.
func ParseJSON(data []byte) (*ConfigNode, error) {
	node := &ConfigNode{}
	if err := node.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return node, nil
}
