package scene_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shipUUID   = "6f1a2c3e-0000-4000-8000-000000000001"
	turretUUID = "6f1a2c3e-0000-4000-8000-000000000002"
	barrelUUID = "6f1a2c3e-0000-4000-8000-000000000003"
	engineUUID = "6f1a2c3e-0000-4000-8000-000000000004"
)

type updateCall struct {
	entity ecs.EntityId
	root   *scene.ConfigNode
}

type recordingUpdater struct {
	calls []updateCall
}

func (r *recordingUpdater) UpdateEntityTree(entity ecs.EntityId, root *scene.ConfigNode) error {
	r.calls = append(r.calls, updateCall{entity: entity, root: root})
	return nil
}

func loadShip(t *testing.T) *scene.Prefab {
	t.Helper()
	prefab, err := scene.LoadPrefabYAML("ship", []byte(shipYAML))
	require.NoError(t, err)
	return prefab
}

func TestFindEntity(t *testing.T) {
	root := loadShip(t).Root()

	assert.Same(t, root, scene.FindEntity(root, shipUUID))

	barrel := scene.FindEntity(root, barrelUUID)
	require.NotNil(t, barrel)
	assert.Equal(t, "barrel", barrel.Get("name").AsString(""))

	engine := scene.FindEntity(root, engineUUID)
	require.NotNil(t, engine)
	assert.Equal(t, "engine", engine.Get("name").AsString(""))

	assert.Nil(t, scene.FindEntity(root, "abc"))
	assert.Nil(t, scene.FindEntity(nil, shipUUID))
}

func TestFindEntityIgnoresNonSequenceChildren(t *testing.T) {
	root, err := scene.ParseYAML([]byte("uuid: a\nchildren:\n  uuid: b\n"))
	require.NoError(t, err)

	assert.Nil(t, scene.FindEntity(root, "b"))
}

func TestGetEntityData(t *testing.T) {
	prefab := loadShip(t)
	data := scene.NewPrefabSceneData(prefab, &recordingUpdater{}, ecs.NewEntityId(1, 0))

	turret := data.GetEntityData(turretUUID)
	assert.Equal(t, "turret", turret.Get("name").AsString(""))

	// The result is a copy.
	turret.Set("name", scene.NewScalar("changed"))
	assert.Equal(t, "turret", scene.FindEntity(prefab.Root(), turretUUID).Get("name").AsString(""))

	missing := data.GetEntityData("abc")
	assert.True(t, missing.IsUndefined())
	assert.Equal(t, 0, missing.Len())
}

func TestReloadEntityReplacesSubtree(t *testing.T) {
	prefab := loadShip(t)
	updater := &recordingUpdater{}
	instance := ecs.NewEntityId(1, 3)
	data := scene.NewPrefabSceneData(prefab, updater, instance)

	replacement := scene.NewMap()
	replacement.Set("uuid", scene.NewScalar(turretUUID))
	replacement.Set("name", scene.NewScalar("cannon"))
	require.NoError(t, data.ReloadEntity(turretUUID, replacement))

	turret := scene.FindEntity(prefab.Root(), turretUUID)
	require.NotNil(t, turret)
	assert.Equal(t, "cannon", turret.Get("name").AsString(""))
	assert.Nil(t, scene.FindEntity(prefab.Root(), barrelUUID), "old subtree is gone")

	replacement.Set("name", scene.NewScalar("later edit"))
	assert.Equal(t, "cannon", turret.Get("name").AsString(""), "stored data is a copy")

	require.Len(t, updater.calls, 1)
	assert.Equal(t, instance, updater.calls[0].entity)
	assert.Same(t, prefab.Root(), updater.calls[0].root)
}

func TestReloadEntityUnknownIDStillUpdates(t *testing.T) {
	prefab := loadShip(t)
	before := prefab.Root().Clone()
	updater := &recordingUpdater{}
	data := scene.NewPrefabSceneData(prefab, updater, ecs.NewEntityId(1, 0))

	require.NoError(t, data.ReloadEntity("abc", scene.NewMap()))

	assert.True(t, before.Equal(prefab.Root()), "prefab unchanged")
	require.Len(t, updater.calls, 1)
	assert.Same(t, prefab.Root(), updater.calls[0].root)
}

func TestPrefabEditing(t *testing.T) {
	root := scene.NewEntityNode("crate")
	assert.NotEmpty(t, root.Get(scene.KeyUUID).AsString(""))

	scene.SetComponentData(root, "Position", scene.FromValue(map[string]any{"x": 1}))
	scene.SetComponentData(root, "Hull", scene.FromValue(map[string]any{"points": 3}))
	scene.SetComponentData(root, "Position", scene.FromValue(map[string]any{"x": 5}))
	require.Equal(t, 2, root.Get(scene.KeyComponents).Len())
	assert.Equal(t, 5, root.Get(scene.KeyComponents).Items()[0].Get("Position").Get("x").AsInt(0))

	assert.True(t, scene.RemoveComponentData(root, "Hull"))
	assert.False(t, scene.RemoveComponentData(root, "Hull"))

	lid := scene.NewEntityNode("lid")
	scene.AddChild(root, lid)
	assert.Same(t, lid, scene.FindEntity(root, lid.Get(scene.KeyUUID).AsString("")))
}

func TestLoadPrefabFile(t *testing.T) {
	dir := t.TempDir()
	prefab := loadShip(t)

	data, err := prefab.JSON()
	require.NoError(t, err)
	path := filepath.Join(dir, "ship.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := scene.LoadPrefabFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ship", loaded.Name())
	assert.True(t, prefab.Root().Equal(loaded.Root()))

	yamlData, err := prefab.YAML()
	require.NoError(t, err)
	yamlPath := filepath.Join(dir, "ship.yml")
	require.NoError(t, os.WriteFile(yamlPath, yamlData, 0o600))
	loaded, err = scene.LoadPrefabFile(yamlPath)
	require.NoError(t, err)
	assert.True(t, prefab.Root().Equal(loaded.Root()))

	_, err = scene.LoadPrefabFile(filepath.Join(dir, "ship.toml"))
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ship.toml"), nil, 0o600))
	_, err = scene.LoadPrefabFile(filepath.Join(dir, "ship.toml"))
	assert.Error(t, err)
}
