package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/famecs/ecs"
)

func NewComponentInspectorComponent() ComponentInspectorComponent {
	return ComponentInspectorComponent{}
}

// Render shows the components of the selected entity. Edits are written straight into component
// storage, which is not a structural change.
func (ci *ComponentInspectorComponent) Render(w *ecs.World, selectedEntityId ecs.EntityId) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ci.selectedEntityId = selectedEntityId

	if ci.selectedEntityId == 0 {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}

	if !w.Alive(ci.selectedEntityId) {
		imgui.Text(fmt.Sprintf("Entity %d no longer exists", ci.selectedEntityId.Index()))
		imgui.End()
		return
	}

	registry := w.Registry()
	mask := w.EntityMask(ci.selectedEntityId)
	imgui.Text(fmt.Sprintf("Entity: %d (generation %d)", ci.selectedEntityId.Index(), ci.selectedEntityId.Generation()))
	imgui.Text(fmt.Sprintf("Mask: %s", mask.Format(registry)))
	imgui.Separator()

	for _, cid := range mask.IDs() {
		component := w.GetComponentValue(ci.selectedEntityId, registry.Type(cid))
		if component == nil {
			continue
		}

		if imgui.TreeNodeStr(registry.Name(cid)) {
			renderValue(reflect.ValueOf(component).Elem())
			imgui.TreePop()
		}
	}

	imgui.End()
}

// renderValue draws editable widgets for the exported fields of an addressable struct value.
func renderValue(val reflect.Value) {
	for _, field := range globalReflectionCache.GetFields(val.Type()) {
		fieldVal := val.Field(field.Index)
		if field.IsPointer {
			if fieldVal.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.Name))
				continue
			}
			fieldVal = fieldVal.Elem()
		}
		if field.Editable || field.Type.Kind() == reflect.Struct {
			renderField(field.Name, fieldVal)
		} else {
			renderSummary(field.Name, fieldVal)
		}
	}
}

func renderField(name string, val reflect.Value) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		labelField(name, 150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) {
			setField(val, reflect.ValueOf(int64(v)))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		labelField(name, 150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) && v >= 0 {
			setField(val, reflect.ValueOf(uint64(v)))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		labelField(name, 150)
		if imgui.InputFloat(fmt.Sprintf("##%s", name), &v) {
			setField(val, reflect.ValueOf(float64(v)))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) {
			setField(val, reflect.ValueOf(v))
		}

	case reflect.String:
		v := val.String()
		labelField(name, 200)
		if imgui.InputTextWithHint(fmt.Sprintf("##%s", name), "", &v, imgui.InputTextFlagsNone, nil) {
			setField(val, reflect.ValueOf(v))
		}

	case reflect.Struct:
		if imgui.TreeNodeStr(name) {
			renderValue(val)
			imgui.TreePop()
		}

	default:
		renderSummary(name, val)
	}
}

func renderSummary(name string, val reflect.Value) {
	imgui.Text(summarize(name, val))
}

// summarize formats a value the inspector does not edit.
func summarize(name string, val reflect.Value) string {
	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("%s: [%d items]", name, val.Len())
	case reflect.Map:
		return fmt.Sprintf("%s: map[%d items]", name, val.Len())
	case reflect.Func:
		if val.IsNil() {
			return fmt.Sprintf("%s: nil func", name)
		}
		return fmt.Sprintf("%s: func", name)
	default:
		if val.CanInterface() {
			return fmt.Sprintf("%s: %v", name, val.Interface())
		}
		return fmt.Sprintf("%s: <%s>", name, val.Type())
	}
}

func labelField(name string, width float32) {
	imgui.Text(fmt.Sprintf("%s:", name))
	imgui.SameLine()
	imgui.SetNextItemWidth(width)
}

// setField stores v into field, converting between numeric kinds. Returns false when the field
// cannot be set or v does not convert.
func setField(field reflect.Value, v reflect.Value) bool {
	if !field.CanSet() || !v.Type().ConvertibleTo(field.Type()) {
		return false
	}
	field.Set(v.Convert(field.Type()))
	return true
}
