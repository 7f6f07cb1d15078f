package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/scene"
	"github.com/plus3/famecs/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var innerUUID = uuid.MustParse("3c0e6a52-7d4e-4b8e-9a51-0f3f5b2f0002")

func newTestRuntime(t *testing.T) *telemetry.Runtime {
	t.Helper()
	cfg, err := telemetry.LoadConfigFrom(map[string]string{"ECS_LOG_LEVEL": "error"})
	require.NoError(t, err)
	rt, err := telemetry.New(cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestReflect1D(t *testing.T) {
	pos, vel := reflect1D(-2, -5, 100)
	assert.Equal(t, 2.0, pos)
	assert.Equal(t, 5.0, vel)

	pos, vel = reflect1D(103, 5, 100)
	assert.Equal(t, 97.0, pos)
	assert.Equal(t, -5.0, vel)

	pos, vel = reflect1D(50, 5, 100)
	assert.Equal(t, 50.0, pos)
	assert.Equal(t, 5.0, vel)
}

func TestViewerDefaultPrefab(t *testing.T) {
	prefab, err := loadPrefab("")
	require.NoError(t, err)
	v, err := newViewer(newTestRuntime(t), prefab, "")
	require.NoError(t, err)
	defer v.world.Close()

	assert.Equal(t, 3, v.world.EntityCount())
	assert.Nil(t, v.world.System("reload"), "nothing to watch without a file")
	assert.Len(t, v.factory.Children(v.root), 2)

	inner, ok := v.factory.Entity(innerUUID)
	require.True(t, ok)
	assert.Equal(t, Velocity{DY: 120}, *ecs.GetComponent[Velocity](v.world, inner))
	assert.Equal(t, Sprite{Radius: 8, R: 179, G: 229, B: 252}, *ecs.GetComponent[Sprite](v.world, inner))

	v.world.Update(0.5)
	assert.Equal(t, Position{X: 540, Y: 420}, *ecs.GetComponent[Position](v.world, inner))
	assert.Nil(t, ecs.GetComponent[Velocity](v.world, v.root), "the root stays still")

	v.world.Render(nil)
	sprites := v.world.System("sprites").(*SpriteSystem)
	assert.Equal(t, 3, sprites.Drawn)
}

func TestMovementBounces(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	w := ecs.NewWorld(registry)
	defer w.Close()
	ecs.NewSingleton(w, Bounds{Width: 100, Height: 100})
	require.NoError(t, w.AddSystem(&MovementSystem{}))

	id := w.Spawn(Position{X: 95, Y: 50}, Velocity{DX: 10})
	w.Reconcile()
	w.Update(1)

	assert.Equal(t, Position{X: 95, Y: 50}, *ecs.GetComponent[Position](w, id))
	assert.Equal(t, Velocity{DX: -10}, *ecs.GetComponent[Velocity](w, id))
}

// updateUntil steps the world until cond holds, failing after a few seconds.
func updateUntil(t *testing.T, w *ecs.World, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "condition not met in time")
		time.Sleep(10 * time.Millisecond)
		w.Update(0)
	}
}

// replaceFile writes data next to path and renames it over path, the way editors save.
func replaceFile(t *testing.T, path string, data []byte) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func newWatchedViewer(t *testing.T) (*viewer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orrery.yaml")
	require.NoError(t, exportDefault(path))

	prefab, err := loadPrefab(path)
	require.NoError(t, err)
	v, err := newViewer(newTestRuntime(t), prefab, path)
	require.NoError(t, err)
	return v, path
}

func TestReloadAppliesFileChanges(t *testing.T) {
	v, path := newWatchedViewer(t)
	defer v.world.Close()

	reload := v.world.System("reload").(*ReloadSystem)
	v.world.Update(0)
	assert.Zero(t, reload.Reloads, "unchanged file")

	edited := v.prefab.Root().Clone()
	inner := scene.FindEntity(edited, innerUUID.String())
	require.NotNil(t, inner)
	scene.SetComponentData(inner, "Sprite", scene.FromValue(map[string]any{"radius": 30, "r": 1, "g": 2, "b": 3}))
	scene.RemoveComponentData(inner, "Velocity")
	scene.AddChild(edited, scene.NewEntityNode("moon"))

	data, err := scene.NewPrefab("orrery", edited).YAML()
	require.NoError(t, err)
	replaceFile(t, path, data)

	updateUntil(t, v.world, func() bool { return len(v.factory.Children(v.root)) == 3 })
	assert.Positive(t, reload.Reloads)

	entity, ok := v.factory.Entity(innerUUID)
	require.True(t, ok)
	assert.Equal(t, Sprite{Radius: 30, R: 1, G: 2, B: 3}, *ecs.GetComponent[Sprite](v.world, entity))
	assert.Nil(t, ecs.GetComponent[Velocity](v.world, entity))
	assert.Equal(t, 4, v.world.EntityCount())

	stored := v.data.GetEntityData(innerUUID.String())
	assert.Equal(t, 30, stored.Get("components").Items()[1].Get("Sprite").Get("radius").AsInt(0))
}

func TestReloadKeepsRunningOnBadFile(t *testing.T) {
	v, path := newWatchedViewer(t)
	defer v.world.Close()

	replaceFile(t, path, []byte("uuid: [unterminated"))

	reload := v.world.System("reload").(*ReloadSystem)
	updateUntil(t, v.world, func() bool { return reload.Changes > 0 })
	assert.Zero(t, reload.Reloads)
	assert.Equal(t, 3, v.world.EntityCount())
}

func TestReloadKeepsRootUUID(t *testing.T) {
	v, path := newWatchedViewer(t)
	defer v.world.Close()

	edited := v.prefab.Root().Clone()
	edited.Delete(scene.KeyUUID)
	outer := edited.Get(scene.KeyChildren).Items()[1]
	scene.SetComponentData(outer, "Position", scene.FromValue(map[string]any{"x": 1, "y": 2}))

	data, err := scene.NewPrefab("orrery", edited).YAML()
	require.NoError(t, err)
	replaceFile(t, path, data)

	outerUUID := uuid.MustParse("3c0e6a52-7d4e-4b8e-9a51-0f3f5b2f0003")
	outerEntity, ok := v.factory.Entity(outerUUID)
	require.True(t, ok)
	updateUntil(t, v.world, func() bool {
		return *ecs.GetComponent[Position](v.world, outerEntity) == Position{X: 1, Y: 2}
	})

	assert.Equal(t, 3, v.world.EntityCount(), "the running tree is updated, not replaced")
	entity, ok := v.factory.Entity(outerUUID)
	require.True(t, ok)
	assert.Equal(t, outerEntity, entity)
	rootID, ok := v.factory.UUID(v.root)
	require.True(t, ok)
	assert.Equal(t, rootID.String(), v.prefab.Root().Get(scene.KeyUUID).AsString(""))
}

func TestReloadWatcherClosesWithWorld(t *testing.T) {
	v, path := newWatchedViewer(t)
	reload := v.world.System("reload").(*ReloadSystem)
	replaceFile(t, path, []byte("name: gone"))
	v.world.Close()

	closed := make(chan struct{})
	go func() {
		for range reload.watcher.Events {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher still open after the world closed")
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orrery.json")
	require.NoError(t, exportDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"))

	prefab, err := loadPrefab(path)
	require.NoError(t, err)
	assert.Equal(t, "orrery", prefab.Root().Get(scene.KeyName).AsString(""))
}

func TestRootCommandExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--export", path})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(path)
	assert.NoError(t, err)

	cmd = newRootCmd()
	cmd.SetArgs([]string{"a.yaml", "b.yaml"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.Execute())
}
