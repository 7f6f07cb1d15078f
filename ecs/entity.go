package ecs

// EntityId encodes both the slot generation (upper 32 bits) and the slot index (lower 32 bits).
// Generations start at 1, so the zero EntityId never names an entity.
type EntityId uint64

// NewEntityId creates an EntityId from a generation and a slot index.
func NewEntityId(generation uint32, index uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Generation extracts the slot generation from the entity ID.
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

// Index extracts the slot index from the entity ID.
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// entityRecord is the world-side state of one entity slot.
type entityRecord struct {
	id         EntityId
	generation uint32
	mask       ComponentMask
	slots      []int32 // ComponentID -> pool index, -1 when absent
	released   []releasedSlot
	alive      bool
	dirty      bool
}

// releasedSlot is a pool slot given up during a pass. The memory stays valid until reconciliation
// so views cached at the start of the pass keep pointing at live data.
type releasedSlot struct {
	component ComponentID
	index     int32
}

func (e *entityRecord) slot(id ComponentID) int32 {
	if int(id) >= len(e.slots) {
		return -1
	}
	return e.slots[id]
}

func (e *entityRecord) setSlot(id ComponentID, index int32) {
	for int(id) >= len(e.slots) {
		e.slots = append(e.slots, -1)
	}
	e.slots[id] = index
}

// changeKind is the kind of a pending change record.
type changeKind uint8

const (
	changeCreated changeKind = iota
	changeDestroyed
	changeAdded
	changeRemoved
)

func (k changeKind) String() string {
	switch k {
	case changeCreated:
		return "created"
	case changeDestroyed:
		return "destroyed"
	case changeAdded:
		return "added"
	case changeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// pendingChange is one entry of the world's pending change log.
type pendingChange struct {
	entity    EntityId
	component ComponentID
	kind      changeKind
}
