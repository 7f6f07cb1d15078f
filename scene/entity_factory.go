package scene

import (
	"reflect"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ErrUnknownComponent is returned when an entity node names a component that is not registered.
var ErrUnknownComponent = eris.New("unknown component")

// EntityFactory instantiates entity nodes into a World and keeps instances in sync with later
// edits. Entities are matched to nodes by uuid; nodes without one are given a fresh uuid.
type EntityFactory struct {
	world    *ecs.World
	logger   zerolog.Logger
	entities map[uuid.UUID]ecs.EntityId
	uuids    *intmap.Map[ecs.EntityId, uuid.UUID]
	children *intmap.Map[ecs.EntityId, []ecs.EntityId]
	managed  *intmap.Map[ecs.EntityId, ecs.ComponentMask]
}

func NewEntityFactory(w *ecs.World) *EntityFactory {
	return &EntityFactory{
		world:    w,
		logger:   w.Logger().With().Str("component", "entity_factory").Logger(),
		entities: make(map[uuid.UUID]ecs.EntityId),
		uuids:    intmap.New[ecs.EntityId, uuid.UUID](64),
		children: intmap.New[ecs.EntityId, []ecs.EntityId](64),
		managed:  intmap.New[ecs.EntityId, ecs.ComponentMask](64),
	}
}

func (f *EntityFactory) World() *ecs.World {
	return f.world
}

// CreateEntityTree spawns root and all of its descendants and returns the root entity.
func (f *EntityFactory) CreateEntityTree(root *ConfigNode) (ecs.EntityId, error) {
	id, err := nodeUUID(root)
	if err != nil {
		return 0, err
	}
	if existing, ok := f.entities[id]; ok && f.world.Alive(existing) {
		return 0, eris.Errorf("entity %s is already instantiated as %d", id, existing)
	}

	entity := f.world.CreateEntity()
	f.track(entity, id)
	if err := f.sync(entity, root); err != nil {
		f.DestroyEntityTree(entity)
		return 0, err
	}

	f.logger.Debug().
		Str("uuid", id.String()).
		Uint64("entity", uint64(entity)).
		Msg("entity tree created")
	return entity, nil
}

// UpdateEntityTree makes entity and its descendants match root: components listed in a node are
// overwritten, components the factory set earlier but no longer listed are removed, new children
// are spawned and children missing from the tree are destroyed.
func (f *EntityFactory) UpdateEntityTree(entity ecs.EntityId, root *ConfigNode) error {
	if !f.world.Alive(entity) {
		return eris.Wrapf(ecs.ErrEntityNotFound, "entity %d", entity)
	}
	id, err := nodeUUID(root)
	if err != nil {
		return err
	}
	if previous, ok := f.uuids.Get(entity); ok && previous != id {
		delete(f.entities, previous)
	}
	f.track(entity, id)

	if err := f.sync(entity, root); err != nil {
		return eris.Wrapf(err, "failed to update entity tree %s", id)
	}
	f.logger.Debug().
		Str("uuid", id.String()).
		Uint64("entity", uint64(entity)).
		Msg("entity tree updated")
	return nil
}

// DestroyEntityTree destroys entity and every descendant the factory created.
func (f *EntityFactory) DestroyEntityTree(entity ecs.EntityId) {
	if children, ok := f.children.Get(entity); ok {
		for _, child := range children {
			f.DestroyEntityTree(child)
		}
	}
	f.forget(entity)
	f.world.DestroyEntity(entity)
}

// Entity returns the live entity instantiated from the node with the given uuid.
func (f *EntityFactory) Entity(id uuid.UUID) (ecs.EntityId, bool) {
	entity, ok := f.entities[id]
	if !ok || !f.world.Alive(entity) {
		return 0, false
	}
	return entity, true
}

// UUID returns the uuid of the node an entity was instantiated from.
func (f *EntityFactory) UUID(entity ecs.EntityId) (uuid.UUID, bool) {
	return f.uuids.Get(entity)
}

// Children returns the entities instantiated from the children of entity's node.
func (f *EntityFactory) Children(entity ecs.EntityId) []ecs.EntityId {
	children, _ := f.children.Get(entity)
	return children
}

func (f *EntityFactory) track(entity ecs.EntityId, id uuid.UUID) {
	f.entities[id] = entity
	f.uuids.Put(entity, id)
}

func (f *EntityFactory) forget(entity ecs.EntityId) {
	if id, ok := f.uuids.Get(entity); ok {
		if f.entities[id] == entity {
			delete(f.entities, id)
		}
	}
	f.uuids.Del(entity)
	f.children.Del(entity)
	f.managed.Del(entity)
}

func (f *EntityFactory) sync(entity ecs.EntityId, node *ConfigNode) error {
	if err := f.syncComponents(entity, node.Get(KeyComponents)); err != nil {
		return err
	}
	return f.syncChildren(entity, node.Get(KeyChildren))
}

func (f *EntityFactory) syncComponents(entity ecs.EntityId, components *ConfigNode) error {
	registry := f.world.Registry()
	previous, _ := f.managed.Get(entity)
	var current ecs.ComponentMask

	err := eachComponent(components, func(name string, data *ConfigNode) error {
		cid, ok := registry.IDByName(name)
		if !ok {
			return eris.Wrapf(ErrUnknownComponent, "component %q", name)
		}
		value := reflect.New(registry.Type(cid))
		if data.Type() != Undefined {
			if err := data.Decode(value.Interface()); err != nil {
				return eris.Wrapf(err, "failed to decode component %q", name)
			}
		}
		f.world.SetComponentValue(entity, value.Interface())
		current.Set(cid)
		return nil
	})
	if err != nil {
		return err
	}

	for _, cid := range previous.IDs() {
		if current.Has(cid) {
			continue
		}
		if f.world.EntityMask(entity).Has(cid) {
			f.world.RemoveComponentType(entity, registry.Type(cid))
		}
	}
	f.managed.Put(entity, current)
	return nil
}

func (f *EntityFactory) syncChildren(entity ecs.EntityId, children *ConfigNode) error {
	previous, _ := f.children.Get(entity)
	kept := make(map[ecs.EntityId]bool, len(previous))
	current := make([]ecs.EntityId, 0, children.Len())

	for _, childNode := range children.Items() {
		child, err := f.syncChild(childNode)
		if err != nil {
			// Keep what was built so a failed tree can still be destroyed.
			f.children.Put(entity, append(current, unkept(previous, kept)...))
			return err
		}
		kept[child] = true
		current = append(current, child)
	}
	f.children.Put(entity, current)

	for _, child := range previous {
		if !kept[child] {
			f.DestroyEntityTree(child)
		}
	}
	return nil
}

func (f *EntityFactory) syncChild(node *ConfigNode) (ecs.EntityId, error) {
	id, err := nodeUUID(node)
	if err != nil {
		return 0, err
	}
	child, ok := f.Entity(id)
	if !ok {
		return f.CreateEntityTree(node)
	}
	if err := f.sync(child, node); err != nil {
		return 0, err
	}
	return child, nil
}

func unkept(entities []ecs.EntityId, kept map[ecs.EntityId]bool) []ecs.EntityId {
	var out []ecs.EntityId
	for _, e := range entities {
		if !kept[e] {
			out = append(out, e)
		}
	}
	return out
}

// eachComponent walks a components node. Both a sequence of single-key maps and a plain map are
// accepted.
func eachComponent(components *ConfigNode, fn func(name string, data *ConfigNode) error) error {
	switch components.Type() {
	case Sequence:
		for _, entry := range components.Items() {
			if entry.Type() != Map {
				return eris.Errorf("component entry must be a map, got %s", entry.Type())
			}
			for _, name := range entry.Keys() {
				if err := fn(name, entry.Get(name)); err != nil {
					return err
				}
			}
		}
	case Map:
		for _, name := range components.Keys() {
			if err := fn(name, components.Get(name)); err != nil {
				return err
			}
		}
	case Undefined:
	default:
		return eris.Errorf("components must be a sequence or a map, got %s", components.Type())
	}
	return nil
}

// nodeUUID returns the uuid of an entity node, assigning a new one if it has none.
func nodeUUID(node *ConfigNode) (uuid.UUID, error) {
	if node.Type() != Map {
		return uuid.Nil, eris.Errorf("entity node must be a map, got %s", node.Type())
	}
	raw := node.Get(KeyUUID).AsString("")
	if raw == "" {
		id := uuid.New()
		node.Set(KeyUUID, NewScalar(id.String()))
		return id, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "invalid entity uuid %q", raw)
	}
	return id, nil
}
