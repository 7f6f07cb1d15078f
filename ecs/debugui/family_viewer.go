package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

type FamilyInfo struct {
	Mask           ecs.ComponentMask
	ComponentTypes []string
	EntityCount    int
	Refs           int
}

type FamilyViewerCache struct {
	families      []FamilyInfo
	sortColumn    int
	sortAscending bool
}

func NewFamilyViewerComponent() FamilyViewerComponent {
	return FamilyViewerComponent{
		cache: &FamilyViewerCache{
			sortColumn:    2,
			sortAscending: false,
		},
	}
}

// Render lists the world's family bindings. Returns the mask of the row clicked this frame, or nil.
func (fv *FamilyViewerComponent) Render(w *ecs.World) *ecs.ComponentMask {
	if !imgui.BeginV("Family Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return nil
	}

	fv.rebuildCache(w)

	maxEntityCount := 0
	for _, family := range fv.cache.families {
		maxEntityCount = max(maxEntityCount, family.EntityCount)
	}

	var clicked *ecs.ComponentMask

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("FamilyTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Systems")
		imgui.TableSetupColumn("Entities")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			fv.cache.sortColumn = int(spec.ColumnIndex())
			fv.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			fv.sortFamilies()
			sortSpecs.SetSpecsDirty(false)
		}

		for _, family := range fv.cache.families {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := fv.selectedFamily != nil && fv.selectedFamily.Equal(family.Mask)
			if imgui.SelectableBoolV(strings.Join(family.ComponentTypes, ", "), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				mask := family.Mask.Clone()
				clicked = &mask
				fv.selectedFamily = &mask
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", family.Refs))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", family.EntityCount))

			if maxEntityCount > 0 {
				barWidth := float32(family.EntityCount) / float32(maxEntityCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}
		}

		imgui.EndTable()
	}

	imgui.End()
	return clicked
}

// rebuildCache refreshes the rows from the world. Bindings are cheap to enumerate, so this runs
// every frame.
func (fv *FamilyViewerComponent) rebuildCache(w *ecs.World) {
	stats := w.Stats()
	fv.cache.families = fv.cache.families[:0]
	for _, family := range stats.Families {
		fv.cache.families = append(fv.cache.families, FamilyInfo{
			Mask:           family.Mask,
			ComponentTypes: family.Components,
			EntityCount:    family.Size,
			Refs:           family.Refs,
		})
	}
	fv.sortFamilies()
}

func (fv *FamilyViewerComponent) sortFamilies() {
	sort.SliceStable(fv.cache.families, func(i, j int) bool {
		a, b := fv.cache.families[i], fv.cache.families[j]
		if !fv.cache.sortAscending {
			a, b = b, a
		}

		switch fv.cache.sortColumn {
		case 0:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case 1:
			return a.Refs < b.Refs
		default:
			return a.EntityCount < b.EntityCount
		}
	})
}
