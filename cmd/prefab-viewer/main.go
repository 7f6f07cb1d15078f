package main

import (
	_ "embed"
	"io"
	"os"
	"path/filepath"

	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/ecs/debugui"
	debugui_ebiten "github.com/plus3/famecs/ecs/debugui/ebiten"
	"github.com/plus3/famecs/ecs/ebitenhost"
	"github.com/plus3/famecs/scene"
	"github.com/plus3/famecs/telemetry"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

const (
	screenWidth  = 1280
	screenHeight = 720
)

//go:embed default.yaml
var defaultPrefab []byte

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug  bool
		export string
	)
	cmd := &cobra.Command{
		Use:   "prefab-viewer [prefab.yaml|prefab.json]",
		Short: "Instantiate a prefab into a world and reload it when the file changes",
		Long: `Loads an entity tree, spawns it into a world and draws every entity with a Position and a
Sprite. Edits to the file are pushed into the running instance. Without a file a built-in prefab
is shown; --export writes it out as a starting point.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if export != "" {
				return exportDefault(export)
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.ErrOrStderr(), path, debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Show the ImGui debug panels.")
	cmd.Flags().StringVar(&export, "export", "", "Write the built-in prefab to this path and exit.")
	return cmd
}

func exportDefault(path string) error {
	prefab, err := scene.LoadPrefabYAML("default", defaultPrefab)
	if err != nil {
		return err
	}
	var data []byte
	if filepath.Ext(path) == ".json" {
		data, err = prefab.JSON()
	} else {
		data, err = prefab.YAML()
	}
	if err != nil {
		return err
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "failed to write %s", path)
}

// viewer is the assembled world and the handles the systems need.
type viewer struct {
	world   *ecs.World
	prefab  *scene.Prefab
	factory *scene.EntityFactory
	data    *scene.PrefabSceneData
	root    ecs.EntityId
}

// newViewer builds the world for a prefab. path may be empty, in which case nothing is watched.
func newViewer(rt *telemetry.Runtime, prefab *scene.Prefab, path string) (*viewer, error) {
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	w := ecs.NewWorld(registry, rt.WorldOptions()...)
	ecs.NewSingleton(w, Bounds{Width: screenWidth, Height: screenHeight})

	factory := scene.NewEntityFactory(w)
	root, err := factory.CreateEntityTree(prefab.Root())
	if err != nil {
		return nil, eris.Wrapf(err, "failed to instantiate prefab %s", prefab.Name())
	}
	v := &viewer{
		world:   w,
		prefab:  prefab,
		factory: factory,
		data:    scene.NewPrefabSceneData(prefab, factory, root),
		root:    root,
	}

	if err := w.AddSystem(&MovementSystem{}, "movement"); err != nil {
		return nil, err
	}
	if path != "" {
		reload, err := NewReloadSystem(path, v.data)
		if err != nil {
			return nil, err
		}
		if err := w.AddSystem(reload, "reload"); err != nil {
			_ = reload.watcher.Close()
			return nil, err
		}
	}
	if err := w.AddSystem(&SpriteSystem{}, "sprites"); err != nil {
		return nil, err
	}
	w.Reconcile()
	return v, nil
}

func loadPrefab(path string) (*scene.Prefab, error) {
	if path == "" {
		return scene.LoadPrefabYAML("default", defaultPrefab)
	}
	return scene.LoadPrefabFile(path)
}

func run(logOut io.Writer, path string, debug bool) (err error) {
	cfg, err := telemetry.LoadConfig()
	if err != nil {
		return err
	}
	rt, err := telemetry.New(cfg, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	prefab, err := loadPrefab(path)
	if err != nil {
		return err
	}
	v, err := newViewer(rt, prefab, path)
	if err != nil {
		return err
	}
	defer v.world.Close()

	var opts []ebitenhost.Option
	opts = append(opts, ebitenhost.WithScreenSize(screenWidth, screenHeight))
	if debug {
		backend := debugui_ebiten.NewImguiBackend("Prefab Viewer", screenWidth, screenHeight)
		if err := debugui.Install(v.world); err != nil {
			return err
		}
		opts = append(opts, ebitenhost.WithOverlay(backend))
	}

	rt.Logger.Info().Str("prefab", prefab.Name()).Int("entities", v.world.EntityCount()).Msg("viewer started")
	game := ebitenhost.NewGame(v.world, opts...)
	return game.Run("Prefab Viewer - "+prefab.Name(), int(cfg.TickRate))
}
