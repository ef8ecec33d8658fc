package runtime

import (
	"fmt"
	"strings"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GVKMapper caches the mapping between kinds and the resources discovered
// for them. Keys ignore the plural: a kind maps to the resource the API
// server reported, or to an inferred one via AutoGenerateGVR.
type GVKMapper struct {
	mu sync.RWMutex

	gvkToGVR map[GroupVersionKind]GroupVersionResource
	gvrToGVK map[GroupVersionResource]GroupVersionKind

	// Lower-cased kind name to GVK for lookups by name
	kindToGVKs map[string][]GroupVersionKind
}

// NewGVKMapper creates a new, empty GVKMapper.
func NewGVKMapper() *GVKMapper {
	return &GVKMapper{
		gvkToGVR:   make(map[GroupVersionKind]GroupVersionResource),
		gvrToGVK:   make(map[GroupVersionResource]GroupVersionKind),
		kindToGVKs: make(map[string][]GroupVersionKind),
	}
}

// RegisterMapping registers a bidirectional mapping between a kind and its
// resource. The stored GVK carries the resource name as its plural.
func (m *GVKMapper) RegisterMapping(gvk GroupVersionKind, gvr GroupVersionResource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := gvk.WithPlural("")
	stored := gvk.WithPlural(gvr.Resource())
	kindKey := strings.ToLower(gvk.Kind())
	if previous, exists := m.gvkToGVR[key]; exists {
		// Re-registration replaces the earlier resource in every index.
		if previous != gvr {
			delete(m.gvrToGVK, previous)
		}
		gvks := m.kindToGVKs[kindKey]
		for i := range gvks {
			if gvks[i].WithPlural("") == key {
				gvks[i] = stored
			}
		}
	} else {
		m.kindToGVKs[kindKey] = append(m.kindToGVKs[kindKey], stored)
	}
	m.gvkToGVR[key] = gvr
	m.gvrToGVK[gvr] = stored
}

// RegisterAPIResourceList registers every resource of a discovery response.
// Subresources (names containing "/") are skipped.
func (m *GVKMapper) RegisterAPIResourceList(list *metav1.APIResourceList) int {
	if list == nil {
		return 0
	}
	registered := 0
	for _, ar := range list.APIResources {
		if strings.Contains(ar.Name, "/") {
			continue
		}
		gvk := FromAPIResource(ar, list.GroupVersion)
		m.RegisterMapping(gvk, gvk.ToGVR())
		registered++
	}
	return registered
}

// KindFor returns the GVK registered for a GVR.
func (m *GVKMapper) KindFor(resource GroupVersionResource) (GroupVersionKind, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gvk, exists := m.gvrToGVK[resource]
	if !exists {
		return GroupVersionKind{}, fmt.Errorf("no kind registered for resource %v", resource)
	}
	return gvk, nil
}

// ResourceFor returns the GVR registered for a GVK. Any plural set on the
// argument is ignored for the lookup.
func (m *GVKMapper) ResourceFor(kind GroupVersionKind) (GroupVersionResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gvr, exists := m.gvkToGVR[kind.WithPlural("")]
	if !exists {
		return GroupVersionResource{}, fmt.Errorf("no resource registered for kind %v", kind)
	}
	return gvr, nil
}

// ResourceOrGenerate returns the registered GVR for kind, falling back to
// AutoGenerateGVR.
func (m *GVKMapper) ResourceOrGenerate(kind GroupVersionKind) GroupVersionResource {
	if gvr, err := m.ResourceFor(kind); err == nil {
		return gvr
	}
	return AutoGenerateGVR(kind)
}

// KindsByName returns all GVKs that match the given kind name (case-insensitive).
func (m *GVKMapper) KindsByName(kindName string) []GroupVersionKind {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gvks, exists := m.kindToGVKs[strings.ToLower(kindName)]
	if !exists {
		return nil
	}

	result := make([]GroupVersionKind, len(gvks))
	copy(result, gvks)
	return result
}

// Len returns the number of registered kinds.
func (m *GVKMapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.gvkToGVR)
}

// AutoGenerateGVR derives a GVR from a GVK using its explicit plural or the
// pluralization rules.
func AutoGenerateGVR(gvk GroupVersionKind) GroupVersionResource {
	return gvk.ToGVR()
}
