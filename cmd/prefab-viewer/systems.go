package main

import (
	"image/color"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/ecs/ebitenhost"
	"github.com/plus3/famecs/scene"
	"github.com/rotisserie/eris"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Velocity struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type Sprite struct {
	Radius float32 `json:"radius"`
	R      uint8   `json:"r"`
	G      uint8   `json:"g"`
	B      uint8   `json:"b"`
}

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Sprite](registry)
}

// Bounds is the area bodies bounce inside.
type Bounds struct {
	Width, Height float64
}

// MovementSystem integrates velocities and reflects bodies at the bounds.
type MovementSystem struct {
	ecs.SystemBase
	Bodies ecs.Family[struct {
		*Position
		*Velocity
	}]
	Bounds ecs.Singleton[Bounds]
}

func (s *MovementSystem) UpdateBase(dt float64) {
	bounds := s.Bounds.Get()
	for body := range s.Bodies.Values() {
		body.Position.X += body.Velocity.DX * dt
		body.Position.Y += body.Velocity.DY * dt
		if bounds.Width > 0 {
			body.Position.X, body.Velocity.DX = reflect1D(body.Position.X, body.Velocity.DX, bounds.Width)
		}
		if bounds.Height > 0 {
			body.Position.Y, body.Velocity.DY = reflect1D(body.Position.Y, body.Velocity.DY, bounds.Height)
		}
	}
}

func reflect1D(pos, vel, limit float64) (float64, float64) {
	switch {
	case pos < 0:
		return -pos, -vel
	case pos > limit:
		return 2*limit - pos, -vel
	default:
		return pos, vel
	}
}

// SpriteSystem draws every positioned sprite when the painter is an ebiten screen.
type SpriteSystem struct {
	ecs.SystemBase
	Sprites ecs.Family[struct {
		*Position `ecs:"read"`
		*Sprite   `ecs:"read"`
	}]
	Drawn int
}

func (s *SpriteSystem) RenderBase(p ecs.Painter) {
	s.Drawn = 0
	screen, ok := ebitenhost.Screen(p)
	for sprite := range s.Sprites.Values() {
		s.Drawn++
		if !ok {
			continue
		}
		c := color.RGBA{R: sprite.Sprite.R, G: sprite.Sprite.G, B: sprite.Sprite.B, A: 255}
		vector.DrawFilledCircle(screen, float32(sprite.Position.X), float32(sprite.Position.Y), sprite.Sprite.Radius, c, true)
	}
}

// ReloadSystem watches the prefab file and pushes changes into the running instance. Watcher
// events are drained at the start of each update so reloads stay inside the frame loop.
type ReloadSystem struct {
	ecs.SystemBase
	Path    string
	Data    *scene.PrefabSceneData
	Changes int
	Reloads int

	watcher *fsnotify.Watcher
}

// NewReloadSystem starts watching the directory of path. Editors often save by renaming a temp
// file over the original, which a watch on the file itself would lose.
func NewReloadSystem(path string, data *scene.PrefabSceneData) (*ReloadSystem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve %s", path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "failed to create file watcher")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, eris.Wrapf(err, "failed to watch %s", abs)
	}
	return &ReloadSystem{Path: abs, Data: data, watcher: watcher}, nil
}

func (s *ReloadSystem) OnRemovedFromWorld(w *ecs.World) {
	if err := s.watcher.Close(); err != nil {
		s.Logger().Warn().Err(err).Msg("failed to close file watcher")
	}
}

func (s *ReloadSystem) UpdateBase(dt float64) {
	if !s.drain() {
		return
	}
	s.Changes++

	loaded, err := scene.LoadPrefabFile(s.Path)
	if err != nil {
		s.Logger().Warn().Err(err).Str("path", s.Path).Msg("failed to load prefab")
		return
	}
	root := loaded.Root()
	if root.Type() != scene.Map {
		s.Logger().Warn().Str("path", s.Path).Stringer("type", root.Type()).Msg("prefab root is not a map")
		return
	}
	id := root.Get(scene.KeyUUID).AsString("")
	if id == "" {
		id = s.Data.Prefab().Root().Get(scene.KeyUUID).AsString("")
		root.Set(scene.KeyUUID, scene.NewScalar(id))
		s.Logger().Warn().Str("path", s.Path).Str("uuid", id).Msg("prefab root has no uuid, keeping the running one")
	}

	// The instance is rebuilt from the prefab root, so structural edits wait for reconciliation.
	s.Commands().Defer(func() {
		if err := s.Data.ReloadEntity(id, root); err != nil {
			s.Logger().Warn().Err(err).Msg("failed to reload prefab")
			return
		}
		s.Reloads++
		s.Logger().Info().Str("uuid", id).Int("reloads", s.Reloads).Msg("prefab reloaded")
	})
}

// drain consumes every pending watcher event and reports whether one of them changed the file.
func (s *ReloadSystem) drain() bool {
	changed := false
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return changed
			}
			if event.Name == s.Path && event.Has(fsnotify.Write|fsnotify.Create) {
				changed = true
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return changed
			}
			s.Logger().Warn().Err(err).Msg("file watcher error")
		default:
			return changed
		}
	}
}
