package debugui

import (
	"github.com/plus3/famecs/ecs"
)

type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	selectedEntityId   ecs.EntityId
	filterText         string
	filterFamily       *ecs.ComponentMask
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	selectedEntityId ecs.EntityId
}

type FamilyViewerComponent struct {
	cache          *FamilyViewerCache
	selectedFamily *ecs.ComponentMask
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}

type FamilyDebuggerComponent struct {
	selectedComponents map[string]bool
}
