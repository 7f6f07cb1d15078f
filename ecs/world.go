package ecs

import (
	"context"
	"reflect"
	"slices"
	"time"
	"unsafe"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/plus3/famecs/ecs/internal/assert"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type passPhase uint8

const (
	phaseIdle passPhase = iota
	phaseUpdate
	phaseParallel
	phaseRender
	phaseReconcile
)

func (p passPhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseUpdate:
		return "update"
	case phaseParallel:
		return "parallel update"
	case phaseRender:
		return "render"
	case phaseReconcile:
		return "reconcile"
	default:
		return "unknown"
	}
}

// World owns the entity population, the shared family bindings and the ordered list of systems,
// and drives them frame by frame.
//
// Structural changes (creating and destroying entities, adding and removing components) take
// effect on the entity immediately but only reach family bindings when the world reconciles.
// Update reconciles once before and once after the system pass, so every system in a pass sees
// the same family membership.
type World struct {
	registry *ComponentRegistry
	pools    []componentPool

	entities    []entityRecord
	freeIndices []uint32
	liveCount   int

	bindings     map[string]*FamilyBinding
	bindingOrder []*FamilyBinding

	pending  []pendingChange
	dirty    []uint32
	commands *Commands

	systems       []System
	systemsByName map[string]System
	conflicts     *ConflictGraph
	parallel      bool

	logger  zerolog.Logger
	metrics statsd.ClientInterface
	api     *API

	frame uint64
	phase passPhase
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithLogger sets the world logger. Systems log through a sub-logger carrying their name.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

// WithMetrics sets the statsd client that receives per-system timings.
func WithMetrics(client statsd.ClientInterface) WorldOption {
	return func(w *World) {
		if client != nil {
			w.metrics = client
		}
	}
}

// WithAPI sets the service bundle handed to systems.
func WithAPI(api *API) WorldOption {
	return func(w *World) {
		if api != nil {
			w.api = api
		}
	}
}

// WithParallelUpdate runs non-conflicting systems concurrently during Update.
func WithParallelUpdate(enabled bool) WorldOption {
	return func(w *World) {
		w.parallel = enabled
	}
}

// NewWorld creates an empty world using the given component registry.
func NewWorld(registry *ComponentRegistry, opts ...WorldOption) *World {
	w := &World{
		registry:      registry,
		bindings:      make(map[string]*FamilyBinding),
		systemsByName: make(map[string]System),
		commands:      newCommands(),
		logger:        zerolog.Nop(),
		metrics:       &statsd.NoOpClient{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.api == nil {
		w.api = NewAPI(w.logger, w.metrics)
	}
	return w
}

// Registry returns the component registry of the world.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// Logger returns the world logger.
func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// API returns the service bundle handed to systems.
func (w *World) API() *API {
	return w.api
}

// Frame returns the number of frames rendered so far.
func (w *World) Frame() uint64 {
	return w.frame
}

// Commands returns a world-level deferred command buffer, flushed after the system buffers.
func (w *World) Commands() *Commands {
	return w.commands
}

// ---------------------------------------------------------------------------------------------
// Entities

func (w *World) record(id EntityId) *entityRecord {
	index := id.Index()
	if id == 0 || int(index) >= len(w.entities) {
		return nil
	}
	e := &w.entities[index]
	if e.generation != id.Generation() {
		return nil
	}
	return e
}

// mutable returns the record of a live entity, or panics when the entity cannot be mutated.
func (w *World) mutable(id EntityId) *entityRecord {
	w.checkMutable()
	e := w.record(id)
	if e == nil || !e.alive {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %d", id))
	}
	return e
}

func (w *World) checkMutable() {
	if w.phase == phaseParallel {
		panic(eris.Wrap(ErrParallelMutation, "world mutated from a system"))
	}
}

func (w *World) markDirty(e *entityRecord, component ComponentID, kind changeKind) {
	w.pending = append(w.pending, pendingChange{entity: e.id, component: component, kind: kind})
	if !e.dirty {
		e.dirty = true
		w.dirty = append(w.dirty, e.id.Index())
	}
}

// CreateEntity creates an entity without components. It joins families once the world reconciles.
func (w *World) CreateEntity() EntityId {
	w.checkMutable()

	var e *entityRecord
	if n := len(w.freeIndices); n > 0 {
		index := w.freeIndices[n-1]
		w.freeIndices = w.freeIndices[:n-1]
		e = &w.entities[index]
	} else {
		index := uint32(len(w.entities))
		w.entities = append(w.entities, entityRecord{generation: 1})
		e = &w.entities[index]
		e.id = NewEntityId(e.generation, index)
	}

	e.alive = true
	w.liveCount++
	w.markDirty(e, 0, changeCreated)
	return e.id
}

// Spawn creates an entity with the given component values.
func (w *World) Spawn(components ...any) EntityId {
	id := w.CreateEntity()
	for _, component := range components {
		w.AddComponentValue(id, component)
	}
	return id
}

// DestroyEntity marks the entity as dead. It stops being visible to family iteration at once and
// is removed from families at the next reconciliation, where its id is also recycled. Returns false
// if the entity was not alive.
func (w *World) DestroyEntity(id EntityId) bool {
	w.checkMutable()
	e := w.record(id)
	if e == nil || !e.alive {
		return false
	}
	e.alive = false
	w.liveCount--
	w.markDirty(e, 0, changeDestroyed)
	return true
}

// Alive reports whether the id names a live entity.
func (w *World) Alive(id EntityId) bool {
	e := w.record(id)
	return e != nil && e.alive
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.liveCount
}

// Entities returns the ids of every live entity in slot order.
func (w *World) Entities() []EntityId {
	ids := make([]EntityId, 0, w.liveCount)
	for i := range w.entities {
		if w.entities[i].alive {
			ids = append(ids, w.entities[i].id)
		}
	}
	return ids
}

// EntityMask returns a copy of the entity's component mask. Dead entities have an empty mask.
func (w *World) EntityMask(id EntityId) ComponentMask {
	e := w.record(id)
	if e == nil || !e.alive {
		return ComponentMask{}
	}
	return e.mask.Clone()
}

// ---------------------------------------------------------------------------------------------
// Components

func (w *World) pool(id ComponentID) componentPool {
	for int(id) >= len(w.pools) {
		w.pools = append(w.pools, nil)
	}
	if w.pools[id] == nil {
		w.pools[id] = w.registry.infos[id].newPool()
	}
	return w.pools[id]
}

func (w *World) componentPointer(e *entityRecord, id ComponentID) unsafe.Pointer {
	index := e.slot(id)
	assert.That(index >= 0, "entity %d has no slot for component %s", e.id, w.registry.Name(id))
	return w.pools[id].pointer(int(index))
}

func (w *World) attachComponent(e *entityRecord, id ComponentID, index int) {
	e.setSlot(id, int32(index))
	e.mask.Set(id)
	w.markDirty(e, id, changeAdded)
}

func (w *World) detachComponent(e *entityRecord, id ComponentID) {
	if !e.mask.Has(id) {
		panic(eris.Wrapf(ErrComponentMissing, "entity %d component %s", e.id, w.registry.Name(id)))
	}
	e.released = append(e.released, releasedSlot{component: id, index: e.slot(id)})
	e.setSlot(id, -1)
	e.mask.Clear(id)
	w.markDirty(e, id, changeRemoved)
}

// AddComponent adds a component to a live entity and returns a pointer to the stored value.
// Panics if the entity already owns a component of this type.
func AddComponent[T any](w *World, id EntityId, value T) *T {
	cid := w.registry.mustID(reflect.TypeFor[T]())
	e := w.mutable(id)
	if e.mask.Has(cid) {
		panic(eris.Wrapf(ErrComponentExists, "entity %d component %s", id, w.registry.Name(cid)))
	}

	pool := w.pool(cid).(*typedPool[T])
	index := pool.put(value)
	w.attachComponent(e, cid, index)
	return pool.at(index)
}

// RemoveComponent removes a component from a live entity. The stored value stays readable through
// views of the current pass and is released at reconciliation.
func RemoveComponent[T any](w *World, id EntityId) {
	cid := w.registry.mustID(reflect.TypeFor[T]())
	w.detachComponent(w.mutable(id), cid)
}

// GetComponent returns a pointer to the entity's component, or nil.
func GetComponent[T any](w *World, id EntityId) *T {
	cid, ok := w.registry.ID(reflect.TypeFor[T]())
	if !ok {
		return nil
	}
	e := w.record(id)
	if e == nil || !e.alive {
		return nil
	}
	index := e.slot(cid)
	if index < 0 {
		return nil
	}
	return w.pools[cid].(*typedPool[T]).at(int(index))
}

// HasComponent reports whether a live entity owns a component of type T.
func HasComponent[T any](w *World, id EntityId) bool {
	cid, ok := w.registry.ID(reflect.TypeFor[T]())
	if !ok {
		return false
	}
	e := w.record(id)
	return e != nil && e.alive && e.mask.Has(cid)
}

// AddComponentValue is the reflective form of AddComponent. The value may be a component or a
// pointer to one; it is copied into the world. Returns a pointer to the stored component.
func (w *World) AddComponentValue(id EntityId, component any) any {
	t := valueType(component)
	cid := w.registry.mustID(t)
	e := w.mutable(id)
	if e.mask.Has(cid) {
		panic(eris.Wrapf(ErrComponentExists, "entity %d component %s", id, w.registry.Name(cid)))
	}

	pool := w.pool(cid)
	index := pool.appendValue(component)
	assert.That(index >= 0, "component value %T does not match pool type %s", component, t)
	w.attachComponent(e, cid, index)
	return pool.get(index)
}

// RemoveComponentType is the reflective form of RemoveComponent.
func (w *World) RemoveComponentType(id EntityId, t reflect.Type) {
	cid := w.registry.mustID(t)
	w.detachComponent(w.mutable(id), cid)
}

// GetComponentValue returns a pointer to the entity's component of type t, or nil.
func (w *World) GetComponentValue(id EntityId, t reflect.Type) any {
	cid, ok := w.registry.ID(t)
	if !ok {
		return nil
	}
	e := w.record(id)
	if e == nil || !e.alive {
		return nil
	}
	index := e.slot(cid)
	if index < 0 {
		return nil
	}
	return w.pools[cid].get(int(index))
}

// SetComponentValue overwrites an existing component in place, or adds it if the entity does not
// own one yet. Overwriting is not a structural change.
func (w *World) SetComponentValue(id EntityId, component any) {
	t := valueType(component)
	cid := w.registry.mustID(t)
	e := w.mutable(id)
	if !e.mask.Has(cid) {
		w.AddComponentValue(id, component)
		return
	}
	ok := w.pools[cid].setValue(int(e.slot(cid)), component)
	assert.That(ok, "component value %T does not match pool type %s", component, t)
}

// Components returns pointers to every component the entity owns, in component id order.
func (w *World) Components(id EntityId) []any {
	e := w.record(id)
	if e == nil || !e.alive {
		return nil
	}
	out := make([]any, 0, e.mask.Count())
	for _, cid := range e.mask.IDs() {
		out = append(out, w.pools[cid].get(int(e.slot(cid))))
	}
	return out
}

// ---------------------------------------------------------------------------------------------
// Family bindings

// acquireBinding returns the binding for a mask, creating and populating it on first use.
func (w *World) acquireBinding(mask ComponentMask) *FamilyBinding {
	key := mask.Key()
	if b, ok := w.bindings[key]; ok {
		b.refs++
		return b
	}

	b := newFamilyBinding(mask)
	for i := range w.entities {
		e := &w.entities[i]
		if e.alive && b.Matches(e.mask) {
			b.reconcile(w, e, true)
		}
	}
	b.refs = 1
	w.bindings[key] = b
	w.bindingOrder = append(w.bindingOrder, b)
	w.logger.Debug().Str("family", mask.Format(w.registry)).Int("size", b.Len()).Msg("family binding created")
	return b
}

// releaseBinding drops one reference and forgets the binding once nothing uses it.
func (w *World) releaseBinding(b *FamilyBinding) {
	b.refs--
	if b.refs > 0 {
		return
	}
	delete(w.bindings, b.key)
	w.bindingOrder = slices.DeleteFunc(w.bindingOrder, func(other *FamilyBinding) bool {
		return other == b
	})
	w.logger.Debug().Str("family", b.mask.Format(w.registry)).Msg("family binding dropped")
}

// Bindings returns the live family bindings in creation order.
func (w *World) Bindings() []*FamilyBinding {
	return slices.Clone(w.bindingOrder)
}

// ---------------------------------------------------------------------------------------------
// Reconciliation

// Reconcile flushes every command buffer and applies all pending structural changes to the family
// bindings as one atomic step. Update calls it around the system pass; call it directly after
// set-up code that runs outside a frame. Panics during a pass or while a family is being iterated.
func (w *World) Reconcile() {
	if w.phase != phaseIdle {
		panic(eris.Wrapf(ErrReconcileDuringPass, "world is in %s", w.phase))
	}
	for _, b := range w.bindingOrder {
		if b.Iterating() {
			panic(eris.Wrapf(ErrReconcileDuringPass, "family %s is being iterated", b.mask.Format(w.registry)))
		}
	}

	w.phase = phaseReconcile
	defer func() { w.phase = phaseIdle }()

	for _, sys := range w.systems {
		sys.systemBase().commands.Flush(w)
	}
	w.commands.Flush(w)

	if len(w.dirty) == 0 {
		w.pending = w.pending[:0]
		return
	}

	var retired int
	for _, index := range w.dirty {
		e := &w.entities[index]
		if e.alive {
			w.reconcileLive(e)
		} else {
			w.retire(e)
			retired++
		}
	}

	for _, b := range w.bindingOrder {
		b.compact()
	}

	w.logger.Trace().
		Int("changes", len(w.pending)).
		Int("entities", len(w.dirty)).
		Int("retired", retired).
		Msg("reconciled")

	w.dirty = w.dirty[:0]
	w.pending = w.pending[:0]
}

func (w *World) reconcileLive(e *entityRecord) {
	slotsChanged := len(e.released) > 0
	for _, b := range w.bindingOrder {
		member := b.Contains(e.id)
		matches := b.Matches(e.mask)
		switch {
		case matches && !member:
			b.reconcile(w, e, true)
		case !matches && member:
			b.reconcile(w, e, false)
		case matches && slotsChanged:
			b.refresh(w, e)
		}
	}
	w.releaseSlots(e)
	e.dirty = false
}

// retire removes a destroyed entity from every binding, frees its slots and recycles its index.
func (w *World) retire(e *entityRecord) {
	for _, b := range w.bindingOrder {
		if b.Contains(e.id) {
			b.reconcile(w, e, false)
		}
	}

	for _, cid := range e.mask.IDs() {
		e.released = append(e.released, releasedSlot{component: cid, index: e.slot(cid)})
	}
	w.releaseSlots(e)
	for i := range e.slots {
		e.slots[i] = -1
	}

	index := e.id.Index()
	e.mask = ComponentMask{}
	e.dirty = false
	e.generation++
	if e.generation == 0 {
		e.generation = 1
	}
	e.id = NewEntityId(e.generation, index)
	w.freeIndices = append(w.freeIndices, index)
}

func (w *World) releaseSlots(e *entityRecord) {
	for _, r := range e.released {
		w.pools[r.component].release(int(r.index))
	}
	e.released = e.released[:0]
}

// ---------------------------------------------------------------------------------------------
// Systems

// AddSystem attaches a system to the world. Its Family fields are bound, and OnAddedToWorld is
// called if implemented. The name defaults to the system's struct type name. Returns an error if a
// family field cannot be resolved, the name is taken, or the system already belongs to a world.
func (w *World) AddSystem(sys System, name ...string) error {
	if w.phase != phaseIdle {
		return eris.Wrapf(ErrReconcileDuringPass, "cannot add a system during %s", w.phase)
	}

	base := sys.systemBase()
	if base.world != nil {
		return eris.Wrapf(ErrSystemAttached, "system %q", base.name)
	}

	systemName := systemName(sys)
	if len(name) > 0 && name[0] != "" {
		systemName = name[0]
	}
	if _, taken := w.systemsByName[systemName]; taken {
		return eris.Wrapf(ErrDuplicateSystem, "system %q", systemName)
	}

	families, types, err := bindFamilies(w, sys)
	if err != nil {
		return eris.Wrapf(err, "failed to add system %q", systemName)
	}

	base.attach(w, systemName, sys, families, types)
	w.systems = append(w.systems, sys)
	w.systemsByName[systemName] = sys
	w.conflicts = nil

	w.logger.Debug().Str("system", systemName).Int("families", len(families)).Msg("system added")

	if hook, ok := sys.(AddedToWorld); ok {
		hook.OnAddedToWorld(w)
	}
	return nil
}

// MustAddSystem is AddSystem that panics on error.
func (w *World) MustAddSystem(sys System, name ...string) {
	if err := w.AddSystem(sys, name...); err != nil {
		panic(err)
	}
}

// AddSystemByName creates a system from the factory and adds it under its registered name.
func (w *World) AddSystemByName(factory *SystemFactory, name string) (System, error) {
	sys, err := factory.Create(name)
	if err != nil {
		return nil, err
	}
	if err := w.AddSystem(sys, name); err != nil {
		return nil, err
	}
	return sys, nil
}

// AddSystemsFromConfig adds one system per name, in order. Either all systems are added or, on the
// first error, the ones added by this call are removed again.
func (w *World) AddSystemsFromConfig(factory *SystemFactory, names []string) error {
	added := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := w.AddSystemByName(factory, name); err != nil {
			for _, prev := range slices.Backward(added) {
				w.RemoveSystem(prev)
			}
			return err
		}
		added = append(added, name)
	}
	return nil
}

// RemoveSystem detaches a system after applying its pending commands.
// Returns false if no system has that name.
func (w *World) RemoveSystem(name string) bool {
	assert.That(w.phase == phaseIdle, "cannot remove system %q during %s", name, w.phase)

	sys, ok := w.systemsByName[name]
	if !ok {
		return false
	}

	base := sys.systemBase()
	if hook, ok := sys.(RemovedFromWorld); ok {
		hook.OnRemovedFromWorld(w)
	}
	base.commands.Flush(w)
	base.detach()

	delete(w.systemsByName, name)
	w.systems = slices.DeleteFunc(w.systems, func(other System) bool {
		return other == sys
	})
	w.conflicts = nil

	w.logger.Debug().Str("system", name).Msg("system removed")
	return true
}

// Systems returns the attached systems in execution order.
func (w *World) Systems() []System {
	return slices.Clone(w.systems)
}

// System returns the system registered under name, or nil.
func (w *World) System(name string) System {
	return w.systemsByName[name]
}

// ---------------------------------------------------------------------------------------------
// Frame

func (w *World) beginFrame() {
	for _, sys := range w.systems {
		sys.systemBase().beginFrame()
	}
}

// Update runs one update pass: pending changes are reconciled, every system's UpdateBase is called
// in registration order, then the changes made during the pass are reconciled.
func (w *World) Update(dt float64) {
	w.beginFrame()
	w.Reconcile()

	if w.parallel {
		w.updateParallel(dt)
	} else {
		w.runPass(phaseUpdate, func(base *SystemBase) { base.doUpdate(dt) })
	}

	w.Reconcile()
	w.emitGauge("world.entities", float64(w.liveCount))
}

// Render runs every system's RenderBase in registration order and ends the frame. Structural
// changes made while rendering are applied at the start of the next Update.
func (w *World) Render(painter Painter) {
	w.runPass(phaseRender, func(base *SystemBase) { base.doRender(painter) })
	w.frame++
}

// Step runs Update followed by Render when a painter is given.
func (w *World) Step(dt float64, painter Painter) {
	w.Update(dt)
	if painter != nil {
		w.Render(painter)
	}
}

// Run steps the world at the given interval until the context is cancelled.
func (w *World) Run(ctx context.Context, interval time.Duration, painter Painter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			w.Step(dt, painter)
		}
	}
}

func (w *World) runPass(phase passPhase, fn func(*SystemBase)) {
	assert.That(w.phase == phaseIdle, "cannot start %s during %s", phase, w.phase)
	w.phase = phase
	defer func() { w.phase = phaseIdle }()

	for _, sys := range w.systems {
		fn(sys.systemBase())
	}
}

// Close detaches every system and drops all family bindings.
func (w *World) Close() {
	for _, sys := range slices.Backward(slices.Clone(w.systems)) {
		w.RemoveSystem(sys.systemBase().name)
	}
	w.Reconcile()
	clear(w.bindings)
	w.bindingOrder = nil
}

func (w *World) emitTiming(name string, d time.Duration, system string) {
	if err := w.metrics.Timing(name, d, []string{"system:" + system}, 1); err != nil {
		w.logger.Warn().Err(err).Str("metric", name).Msg("failed to emit timing")
	}
}

func (w *World) emitGauge(name string, value float64) {
	if err := w.metrics.Gauge(name, value, nil, 1); err != nil {
		w.logger.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge")
	}
}
