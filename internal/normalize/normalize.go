// Package normalize repairs common structural slips in model-generated
// configuration trees before schema validation.
//
// Both passes mutate the tree in place, are idempotent, and do nothing on
// nodes whose shape does not match what they expect.
package normalize

// Deprecated probe field names. The liveness probe is carried over to its
// short name, the other two are dropped.
const (
	LivenessProbe  = "livenessProbe"
	Liveness       = "liveness"
	ReadinessProbe = "readinessProbe"
	StartupProbe   = "startupProbe"
)

// Apply runs probe cleanup and then required-object backfill on instance.
func Apply(schema map[string]any, instance any) {
	CleanupProbes(instance)
	FillRequiredObjects(schema, instance)
}

// CleanupProbes renames or removes deprecated probe fields in every object of
// the tree, lists included.
func CleanupProbes(node any) {
	switch v := node.(type) {
	case map[string]any:
		if probe, ok := v[LivenessProbe]; ok {
			if _, exists := v[Liveness]; !exists {
				v[Liveness] = probe
			}
			delete(v, LivenessProbe)
		}
		delete(v, ReadinessProbe)
		delete(v, StartupProbe)

		for _, child := range v {
			CleanupProbes(child)
		}
	case []any:
		for _, item := range v {
			CleanupProbes(item)
		}
	}
}

// FillRequiredObjects inserts an empty object for every required key whose
// subschema is declared as type "object" and which the instance lacks, then
// descends into object-valued properties with their subschemas.
func FillRequiredObjects(schema map[string]any, instance any) {
	obj, ok := instance.(map[string]any)
	if !ok || schema == nil {
		return
	}
	properties, _ := schema["properties"].(map[string]any)

	required, _ := schema["required"].([]any)
	for _, r := range required {
		key, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := obj[key]; present {
			continue
		}
		if isObjectSchema(properties[key]) {
			obj[key] = map[string]any{}
		}
	}

	fillProperties(properties, obj)
}

// fillProperties pairs each declared property with the matching instance
// value and recurses where both sides are objects.
func fillProperties(properties map[string]any, obj map[string]any) {
	for key, sub := range properties {
		child, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		subschema, ok := sub.(map[string]any)
		if !ok {
			continue
		}
		FillRequiredObjects(subschema, child)
	}
}

func isObjectSchema(node any) bool {
	sub, ok := node.(map[string]any)
	if !ok {
		return false
	}
	typ, _ := sub["type"].(string)
	return typ == "object"
}
