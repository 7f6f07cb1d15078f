package debugui

import (
	"fmt"
	"slices"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

// FamilyMatch is the result of evaluating an ad-hoc family against the world.
type FamilyMatch struct {
	Mask     ecs.ComponentMask
	Entities int
	// Bindings whose required components include every selected component.
	Bindings []ecs.FamilyStats
}

func NewFamilyDebuggerComponent() FamilyDebuggerComponent {
	return FamilyDebuggerComponent{
		selectedComponents: make(map[string]bool),
	}
}

func (fd *FamilyDebuggerComponent) Render(w *ecs.World) {
	if !imgui.BeginV("Family Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.Text("Select Component Types:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		clear(fd.selectedComponents)
	}

	for _, name := range w.Registry().Names() {
		selected := fd.selectedComponents[name]
		if imgui.Checkbox(name, &selected) {
			fd.Toggle(name, selected)
		}
	}

	imgui.Separator()

	if len(fd.selectedComponents) == 0 {
		imgui.Text("No component types selected")
		imgui.End()
		return
	}

	match := fd.Match(w)
	imgui.Text(fmt.Sprintf("Family: %s", match.Mask.Format(w.Registry())))
	imgui.Text(fmt.Sprintf("Matching Entities: %d", match.Entities))
	imgui.Text(fmt.Sprintf("Covering Bindings: %d", len(match.Bindings)))

	if imgui.TreeNodeStr("Binding Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("FamilyMatchTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Components")
			imgui.TableSetupColumn("Systems")
			imgui.TableSetupColumn("Entities")
			imgui.TableHeadersRow()

			for _, binding := range match.Bindings {
				imgui.TableNextRow()
				imgui.TableSetColumnIndex(0)
				imgui.Text(fmt.Sprintf("%v", binding.Components))
				imgui.TableSetColumnIndex(1)
				imgui.Text(fmt.Sprintf("%d", binding.Refs))
				imgui.TableSetColumnIndex(2)
				imgui.Text(fmt.Sprintf("%d", binding.Size))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	imgui.End()
}

func (fd *FamilyDebuggerComponent) Toggle(name string, selected bool) {
	if selected {
		fd.selectedComponents[name] = true
	} else {
		delete(fd.selectedComponents, name)
	}
}

// Match counts the live entities owning every selected component and lists the bindings that
// require at least those components. Unknown names are ignored.
func (fd *FamilyDebuggerComponent) Match(w *ecs.World) FamilyMatch {
	registry := w.Registry()
	var match FamilyMatch
	for name := range fd.selectedComponents {
		if cid, ok := registry.IDByName(name); ok {
			match.Mask.Set(cid)
		}
	}
	if match.Mask.IsEmpty() {
		return match
	}

	for _, id := range w.Entities() {
		if w.EntityMask(id).Contains(match.Mask) {
			match.Entities++
		}
	}

	for _, binding := range w.Stats().Families {
		if binding.Mask.Contains(match.Mask) {
			match.Bindings = append(match.Bindings, binding)
		}
	}
	slices.SortStableFunc(match.Bindings, func(a, b ecs.FamilyStats) int {
		return b.Size - a.Size
	})
	return match
}
