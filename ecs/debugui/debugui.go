// Package debugui provides immediate-mode GUI integration for worlds using Dear ImGui.
// ImGui windows are entities: an ImguiItem carries a render function, and the built-in debug
// panels are components drawn by DebugWindowsSystem during the render pass.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func()
}

// ImguiInputState tracks Dear ImGui's input capture state as a singleton.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiSystem draws every ImguiItem during the render pass and refreshes ImguiInputState during
// update.
type ImguiSystem struct {
	ecs.SystemBase
	Items      ecs.Family[struct{ *ImguiItem }]
	InputState ecs.Singleton[ImguiInputState]
}

func (s *ImguiSystem) UpdateBase(dt float64) {
	io := imgui.CurrentIO()
	state := s.InputState.Get()
	state.WantCaptureMouse = io.WantCaptureMouse()
	state.WantCaptureKeyboard = io.WantCaptureKeyboard()
}

func (s *ImguiSystem) RenderBase(p ecs.Painter) {
	for item := range s.Items.Values() {
		if item.Render != nil {
			item.Render()
		}
	}
}

// DebugWindowsSystem draws the world inspection panels. A family selected in the family viewer
// filters the entity browser, and the entity selected in the browser is shown by the inspector.
type DebugWindowsSystem struct {
	ecs.SystemBase
	Browsers    ecs.Family[struct{ *EntityBrowserComponent }]
	Inspectors  ecs.Family[struct{ *ComponentInspectorComponent }]
	Viewers     ecs.Family[struct{ *FamilyViewerComponent }]
	Performance ecs.Family[struct{ *PerformanceStatsComponent }]
	Debuggers   ecs.Family[struct{ *FamilyDebuggerComponent }]
}

func (s *DebugWindowsSystem) UpdateBase(dt float64) {
	for panel := range s.Performance.Values() {
		panel.PerformanceStatsComponent.RecordFrame(float32(dt))
	}
}

func (s *DebugWindowsSystem) RenderBase(p ecs.Painter) {
	w := s.World()

	for panel := range s.Viewers.Values() {
		if clicked := panel.FamilyViewerComponent.Render(w); clicked != nil {
			for browser := range s.Browsers.Values() {
				browser.EntityBrowserComponent.SetFamilyFilter(clicked)
			}
		}
	}

	var selected ecs.EntityId
	for panel := range s.Browsers.Values() {
		panel.EntityBrowserComponent.Render(w)
		selected = panel.EntityBrowserComponent.GetSelectedEntity()
	}

	for panel := range s.Inspectors.Values() {
		panel.ComponentInspectorComponent.Render(w, selected)
	}
	for panel := range s.Performance.Values() {
		panel.PerformanceStatsComponent.Render(w)
	}
	for panel := range s.Debuggers.Values() {
		panel.FamilyDebuggerComponent.Render(w)
	}
}
