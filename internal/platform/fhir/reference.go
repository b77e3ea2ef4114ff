package fhir

import (
	"strings"
)

// FormatReference creates a relative FHIR reference string.
func FormatReference(resourceType, id string) string {
	return resourceType + "/" + id
}

// SplitReference splits a reference into resource type and id. Absolute
// references keep only the last two path segments, so
// "https://fhir.example.org/r4/Patient/42" yields ("Patient", "42").
// Returns ("", "") when the reference has no type segment.
func SplitReference(ref string) (resourceType, id string) {
	ref = strings.TrimSuffix(ref, "/")
	if i := strings.Index(ref, "?"); i >= 0 {
		ref = ref[:i]
	}
	segs := strings.Split(ref, "/")
	if len(segs) < 2 {
		return "", ""
	}
	return segs[len(segs)-2], segs[len(segs)-1]
}

// RelativeReference normalizes a reference to its relative
// "ResourceType/id" form. References without a type segment come back
// unchanged.
func RelativeReference(ref string) string {
	rt, id := SplitReference(ref)
	if rt == "" || id == "" {
		return ref
	}
	return FormatReference(rt, id)
}
