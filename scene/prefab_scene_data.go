package scene

import "github.com/plus3/famecs/ecs"

// EntityTreeUpdater rebuilds a live entity and its descendants from an entity node.
type EntityTreeUpdater interface {
	UpdateEntityTree(entity ecs.EntityId, root *ConfigNode) error
}

// PrefabSceneData lets an editor read and replace the entity nodes of a prefab that is
// instantiated as entity.
type PrefabSceneData struct {
	prefab  *Prefab
	factory EntityTreeUpdater
	entity  ecs.EntityId
}

func NewPrefabSceneData(prefab *Prefab, factory EntityTreeUpdater, entity ecs.EntityId) *PrefabSceneData {
	return &PrefabSceneData{
		prefab:  prefab,
		factory: factory,
		entity:  entity,
	}
}

func (d *PrefabSceneData) Prefab() *Prefab {
	return d.prefab
}

func (d *PrefabSceneData) Entity() ecs.EntityId {
	return d.entity
}

// GetEntityData returns a copy of the node whose uuid is id, or an empty node.
func (d *PrefabSceneData) GetEntityData(id string) *ConfigNode {
	if found := FindEntity(d.prefab.Root(), id); found != nil {
		return found.Clone()
	}
	return &ConfigNode{}
}

// ReloadEntity replaces the node whose uuid is id with a copy of data, then resyncs the whole
// instance from the prefab root. The resync happens even when id is not found.
func (d *PrefabSceneData) ReloadEntity(id string, data *ConfigNode) error {
	if found := FindEntity(d.prefab.Root(), id); found != nil {
		*found = *data.Clone()
	}

	return d.factory.UpdateEntityTree(d.entity, d.prefab.Root())
}

// FindEntity searches node and its children depth first for the entity whose uuid is id.
// Returns nil when there is none.
func FindEntity(node *ConfigNode, id string) *ConfigNode {
	if node == nil {
		return nil
	}
	if node.Get(KeyUUID).AsString("") == id {
		return node
	}

	children := node.Get(KeyChildren)
	if children.Type() == Sequence {
		for _, child := range children.Items() {
			if found := FindEntity(child, id); found != nil {
				return found
			}
		}
	}

	return nil
}
