package debugui

import (
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
)

func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
	ecs.RegisterComponent[EntityBrowserComponent](registry)
	ecs.RegisterComponent[ComponentInspectorComponent](registry)
	ecs.RegisterComponent[FamilyViewerComponent](registry)
	ecs.RegisterComponent[PerformanceStatsComponent](registry)
	ecs.RegisterComponent[FamilyDebuggerComponent](registry)
}

func SpawnDebugUI(w *ecs.World) {
	w.Spawn(NewEntityBrowserComponent(100))
	w.Spawn(NewComponentInspectorComponent())
	w.Spawn(NewFamilyViewerComponent())
	w.Spawn(NewPerformanceStatsComponent(120))
	w.Spawn(NewFamilyDebuggerComponent())
}

// Install registers the debug components, adds ImguiSystem and DebugWindowsSystem to the world and
// spawns the panels.
func Install(w *ecs.World) error {
	RegisterDebugUIComponents(w.Registry())
	if err := w.AddSystem(&ImguiSystem{}, "imgui"); err != nil {
		return eris.Wrap(err, "failed to add imgui system")
	}
	if err := w.AddSystem(&DebugWindowsSystem{}, "debug_windows"); err != nil {
		w.RemoveSystem("imgui")
		return eris.Wrap(err, "failed to add debug windows system")
	}
	SpawnDebugUI(w)
	return nil
}
