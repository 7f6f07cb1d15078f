package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

type EntityInfo struct {
	ID             ecs.EntityId
	Mask           ecs.ComponentMask
	ComponentTypes []string
}

type EntityBrowserCache struct {
	entities      []EntityInfo
	frame         uint64
	built         bool
	sortColumn    int
	sortAscending bool
}

func NewEntityBrowserComponent(maxEntitiesPerPage int) EntityBrowserComponent {
	return EntityBrowserComponent{
		cache: &EntityBrowserCache{
			sortColumn:    0,
			sortAscending: true,
		},
		maxEntitiesPerPage: maxEntitiesPerPage,
	}
}

func (eb *EntityBrowserComponent) Render(w *ecs.World) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.rebuildCacheIfNeeded(w)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
		eb.filterFamily = nil
	}
	if eb.filterFamily != nil {
		imgui.Text("Family: " + eb.filterFamily.Format(w.Registry()))
	}

	filteredEntities := eb.getFilteredEntities()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Index")
		imgui.TableSetupColumn("Generation")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.cache.sortColumn = int(spec.ColumnIndex())
			eb.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			eb.sortEntities()
			sortSpecs.SetSpecsDirty(false)
			filteredEntities = eb.getFilteredEntities()
		}

		start, end := eb.pageBounds(len(filteredEntities))
		for _, entity := range filteredEntities[start:end] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := eb.selectedEntityId == entity.ID
			if imgui.SelectableBoolV(fmt.Sprintf("%d", entity.ID.Index()), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.selectedEntityId = entity.ID
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entity.ID.Generation()))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", len(entity.ComponentTypes)))
		}

		imgui.EndTable()
	}

	if len(filteredEntities) > eb.maxEntitiesPerPage {
		totalPages := eb.totalPages(len(filteredEntities))
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, totalPages, len(filteredEntities)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < totalPages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filteredEntities)))
	}

	imgui.End()
}

// SetFamilyFilter restricts the browser to entities whose mask contains family.
func (eb *EntityBrowserComponent) SetFamilyFilter(family *ecs.ComponentMask) {
	eb.filterFamily = family
	eb.currentPage = 0
}

func (eb *EntityBrowserComponent) rebuildCacheIfNeeded(w *ecs.World) {
	if !eb.cache.built || eb.cache.frame != w.Frame() {
		eb.rebuildCache(w)
	}
}

func (eb *EntityBrowserComponent) rebuildCache(w *ecs.World) {
	registry := w.Registry()
	eb.cache.entities = eb.cache.entities[:0]

	for _, id := range w.Entities() {
		mask := w.EntityMask(id)
		ids := mask.IDs()
		componentTypes := make([]string, len(ids))
		for i, cid := range ids {
			componentTypes[i] = registry.Name(cid)
		}
		eb.cache.entities = append(eb.cache.entities, EntityInfo{
			ID:             id,
			Mask:           mask,
			ComponentTypes: componentTypes,
		})
	}

	eb.cache.frame = w.Frame()
	eb.cache.built = true
	eb.sortEntities()
}

func (eb *EntityBrowserComponent) sortEntities() {
	sort.SliceStable(eb.cache.entities, func(i, j int) bool {
		a, b := eb.cache.entities[i], eb.cache.entities[j]
		if !eb.cache.sortAscending {
			a, b = b, a
		}

		switch eb.cache.sortColumn {
		case 1:
			return a.ID.Generation() < b.ID.Generation()
		case 2:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case 3:
			return len(a.ComponentTypes) < len(b.ComponentTypes)
		default:
			return a.ID.Index() < b.ID.Index()
		}
	})
}

func (eb *EntityBrowserComponent) getFilteredEntities() []EntityInfo {
	if eb.filterText == "" && eb.filterFamily == nil {
		return eb.cache.entities
	}

	filtered := make([]EntityInfo, 0, len(eb.cache.entities))
	filterLower := strings.ToLower(eb.filterText)

	for _, entity := range eb.cache.entities {
		if eb.filterFamily != nil && !entity.Mask.Contains(*eb.filterFamily) {
			continue
		}

		if eb.filterText != "" {
			idStr := fmt.Sprintf("%d", entity.ID.Index())
			componentsStr := strings.ToLower(strings.Join(entity.ComponentTypes, " "))

			if !strings.Contains(idStr, filterLower) && !strings.Contains(componentsStr, filterLower) {
				continue
			}
		}

		filtered = append(filtered, entity)
	}

	return filtered
}

func (eb *EntityBrowserComponent) totalPages(count int) int {
	if eb.maxEntitiesPerPage <= 0 {
		return 1
	}
	return max(1, (count+eb.maxEntitiesPerPage-1)/eb.maxEntitiesPerPage)
}

// pageBounds clamps the current page to the filtered row count.
func (eb *EntityBrowserComponent) pageBounds(count int) (int, int) {
	if eb.maxEntitiesPerPage <= 0 {
		return 0, count
	}
	eb.currentPage = min(eb.currentPage, eb.totalPages(count)-1)
	start := eb.currentPage * eb.maxEntitiesPerPage
	end := min(start+eb.maxEntitiesPerPage, count)
	return start, end
}

func (eb *EntityBrowserComponent) GetSelectedEntity() ecs.EntityId {
	return eb.selectedEntityId
}
