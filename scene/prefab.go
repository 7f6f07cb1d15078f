package scene

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Keys of an entity node.
const (
	KeyUUID       = "uuid"
	KeyName       = "name"
	KeyComponents = "components"
	KeyChildren   = "children"
)

// Prefab is a named entity tree. The root is an entity node:
//
//	uuid: 1f0c...
//	name: ship
//	components:
//	  - Position: {x: 1, y: 2}
//	children:
//	  - uuid: ...
type Prefab struct {
	name string
	root *ConfigNode
}

// NewPrefab wraps root. A nil root starts an empty entity.
func NewPrefab(name string, root *ConfigNode) *Prefab {
	if root == nil {
		root = NewEntityNode(name)
	}
	return &Prefab{name: name, root: root}
}

// LoadPrefabYAML parses a prefab from YAML.
func LoadPrefabYAML(name string, data []byte) (*Prefab, error) {
	root, err := ParseYAML(data)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load prefab %s", name)
	}
	return NewPrefab(name, root), nil
}

// LoadPrefabJSON parses a prefab from JSON.
func LoadPrefabJSON(name string, data []byte) (*Prefab, error) {
	root, err := ParseJSON(data)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load prefab %s", name)
	}
	return NewPrefab(name, root), nil
}

// LoadPrefabFile reads a .yaml, .yml or .json prefab. The prefab is named after the file.
func LoadPrefabFile(path string) (*Prefab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read prefab %s", path)
	}
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	switch strings.ToLower(ext) {
	case ".json":
		return LoadPrefabJSON(name, data)
	case ".yaml", ".yml":
		return LoadPrefabYAML(name, data)
	default:
		return nil, eris.Errorf("unsupported prefab format %q", ext)
	}
}

func (p *Prefab) Name() string {
	return p.name
}

// Root returns the root entity node. Edits to it are edits to the prefab.
func (p *Prefab) Root() *ConfigNode {
	return p.root
}

// YAML encodes the prefab.
func (p *Prefab) YAML() ([]byte, error) {
	data, err := yaml.Marshal(p.root)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to encode prefab %s", p.name)
	}
	return data, nil
}

// JSON encodes the prefab.
func (p *Prefab) JSON() ([]byte, error) {
	data, err := p.root.MarshalJSON()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to encode prefab %s", p.name)
	}
	return data, nil
}

// NewEntityNode returns an entity node with a fresh uuid.
func NewEntityNode(name string) *ConfigNode {
	node := NewMap()
	node.Set(KeyUUID, NewScalar(uuid.NewString()))
	if name != "" {
		node.Set(KeyName, NewScalar(name))
	}
	return node
}

// SetComponentData stores the data of a component on an entity node, replacing an existing entry
// with the same component name.
func SetComponentData(entity *ConfigNode, component string, data *ConfigNode) {
	entry := NewMap()
	entry.Set(component, data)

	components := entity.Get(KeyComponents)
	if components.Type() != Sequence {
		components = NewSequence()
		entity.Set(KeyComponents, components)
	}
	for i, existing := range components.items {
		if existing.Has(component) {
			components.items[i] = entry
			return
		}
	}
	components.Append(entry)
}

// RemoveComponentData drops a component entry from an entity node.
func RemoveComponentData(entity *ConfigNode, component string) bool {
	components := entity.Get(KeyComponents)
	for i, existing := range components.Items() {
		if existing.Has(component) {
			components.items = append(components.items[:i], components.items[i+1:]...)
			return true
		}
	}
	return false
}

// AddChild appends child to the children of an entity node.
func AddChild(entity *ConfigNode, child *ConfigNode) {
	children := entity.Get(KeyChildren)
	if children.Type() != Sequence {
		children = NewSequence()
		entity.Set(KeyChildren, children)
	}
	children.Append(child)
}
