package ecs

import (
	"reflect"
	"time"
	"unsafe"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// System represents a behavior that operates on families of entities. User-defined systems embed
// SystemBase and declare Family fields for the component combinations they process, as well as
// custom state fields that persist between frames.
//
// A system opts into the frame phases by implementing Updater and/or Renderer, and can react to
// being attached by implementing AddedToWorld.
type System interface {
	// Name returns the name the system was added under. Empty until attached.
	Name() string
	systemBase() *SystemBase
}

// Updater is implemented by systems that run during World.Update.
type Updater interface {
	UpdateBase(dt float64)
}

// Renderer is implemented by systems that run during World.Render.
type Renderer interface {
	RenderBase(painter Painter)
}

// AddedToWorld is implemented by systems that need set-up once their families are bound.
type AddedToWorld interface {
	OnAddedToWorld(w *World)
}

// RemovedFromWorld is implemented by systems that hold resources to release when they are removed
// from the world, including by World.Close. Families are still bound during the call.
type RemovedFromWorld interface {
	OnRemovedFromWorld(w *World)
}

// SystemBase carries the per-system state the World manages. Embed it by value.
type SystemBase struct {
	name     string
	world    *World
	owner    System
	updater  Updater
	renderer Renderer
	logger   zerolog.Logger
	commands *Commands
	families []familyField
	types    []FamilyType

	nsTaken     time.Duration
	updateStats timingStats
	renderStats timingStats
}

func (b *SystemBase) systemBase() *SystemBase {
	return b
}

// Name returns the name the system was added under.
func (b *SystemBase) Name() string {
	return b.name
}

// World returns the world the system is attached to, or nil.
func (b *SystemBase) World() *World {
	return b.world
}

// API returns the service bundle of the world the system is attached to.
func (b *SystemBase) API() *API {
	b.mustBeAttached()
	return b.world.api
}

// Logger returns the world logger tagged with the system name.
func (b *SystemBase) Logger() *zerolog.Logger {
	return &b.logger
}

// Commands returns the system's deferred command buffer. It is flushed when the world reconciles.
func (b *SystemBase) Commands() *Commands {
	b.mustBeAttached()
	return b.commands
}

// NsTaken returns the time spent in this system's update and render hooks in the current frame.
func (b *SystemBase) NsTaken() time.Duration {
	return b.nsTaken
}

// Families returns the resolved signatures of the system's family fields in declaration order.
func (b *SystemBase) Families() []FamilyType {
	return b.types
}

// Attached reports whether the system belongs to a world.
func (b *SystemBase) Attached() bool {
	return b.world != nil
}

// Stats returns the system's timing statistics.
func (b *SystemBase) Stats() SystemStats {
	return SystemStats{
		Name:    b.name,
		NsTaken: b.nsTaken,
		Update:  b.updateStats.snapshot(),
		Render:  b.renderStats.snapshot(),
	}
}

func (b *SystemBase) mustBeAttached() {
	if b.world == nil {
		panic(eris.Wrapf(ErrSystemNotAttached, "system %q", b.name))
	}
}

func (b *SystemBase) beginFrame() {
	b.nsTaken = 0
}

// doUpdate runs the UpdateBase hook and accounts for its time.
func (b *SystemBase) doUpdate(dt float64) {
	b.mustBeAttached()
	if b.updater == nil {
		return
	}

	start := time.Now()
	b.updater.UpdateBase(dt)
	elapsed := time.Since(start)

	b.nsTaken += elapsed
	b.updateStats.record(elapsed)
	b.world.emitTiming("system.update", elapsed, b.name)
}

// doRender runs the RenderBase hook and accounts for its time.
func (b *SystemBase) doRender(painter Painter) {
	b.mustBeAttached()
	if b.renderer == nil {
		return
	}

	start := time.Now()
	b.renderer.RenderBase(painter)
	elapsed := time.Since(start)

	b.nsTaken += elapsed
	b.renderStats.record(elapsed)
	b.world.emitTiming("system.render", elapsed, b.name)
}

func (b *SystemBase) attach(w *World, name string, owner System, families []familyField, types []FamilyType) {
	b.name = name
	b.world = w
	b.owner = owner
	b.updater, _ = owner.(Updater)
	b.renderer, _ = owner.(Renderer)
	b.logger = w.logger.With().Str("system", name).Logger()
	b.commands = newCommands()
	b.families = families
	b.types = types
	b.nsTaken = 0
	b.updateStats = newTimingStats()
	b.renderStats = newTimingStats()
}

func (b *SystemBase) detach() {
	for _, f := range b.families {
		f.unbind()
	}
	b.world = nil
	b.owner = nil
	b.updater = nil
	b.renderer = nil
	b.families = nil
	b.types = nil
	b.commands = nil
}

// systemName derives the default system name from the concrete struct type.
func systemName(sys System) string {
	t := reflect.TypeOf(sys)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// bindFamilies resolves every Family and Singleton field declared on the system struct. Unexported
// fields are supported. On error, families bound so far are released.
func bindFamilies(w *World, sys System) ([]familyField, []FamilyType, error) {
	value := reflect.ValueOf(sys)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return nil, nil, eris.Errorf("system %T must be a non-nil pointer to a struct", sys)
	}
	value = value.Elem()
	if value.Kind() != reflect.Struct {
		return nil, nil, eris.Errorf("system %T must be a pointer to a struct", sys)
	}

	var (
		families []familyField
		types    []FamilyType
	)
	fail := func(err error) ([]familyField, []FamilyType, error) {
		for _, f := range families {
			f.unbind()
		}
		return nil, nil, err
	}

	structType := value.Type()
	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		if field.Kind() != reflect.Struct {
			continue
		}

		addr := reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Interface()
		if singleton, ok := addr.(singletonField); ok {
			singleton.initSingleton(w)
			continue
		}
		family, ok := addr.(familyField)
		if !ok {
			continue
		}

		familyType, err := family.bind(w)
		if err != nil {
			return fail(eris.Wrapf(err, "system %s field %s", structType.Name(), structType.Field(i).Name))
		}
		families = append(families, family)
		types = append(types, familyType)
	}

	return families, types, nil
}
