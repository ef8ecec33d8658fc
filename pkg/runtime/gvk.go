package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// GroupVersionKind identifies a resource type by its API group, version and
// kind. The plural resource name is optional: when unset it is inferred from
// the kind at lookup time.
//
// Values are immutable and comparable, so they can be used as map keys.
type GroupVersionKind struct {
	group      string
	version    string
	kind       string
	apiVersion string
	plural     string
}

// NewGVK returns the GroupVersionKind for the given triple. The group may be
// empty (core API group); version and kind may not.
func NewGVK(group, version, kind string) (GroupVersionKind, error) {
	if version == "" {
		return GroupVersionKind{}, kerrors.NewDynamicType("GroupVersionKind '%s' must have a version", kind)
	}
	if kind == "" {
		return GroupVersionKind{}, kerrors.NewDynamicType("GroupVersionKind '%s' must have a kind", kind)
	}
	return GroupVersionKind{
		group:      group,
		version:    version,
		kind:       kind,
		apiVersion: joinAPIVersion(group, version),
	}, nil
}

// MustGVK is like NewGVK but panics on an invalid triple. It is meant for
// package-level variables describing well known types.
func MustGVK(group, version, kind string) GroupVersionKind {
	gvk, err := NewGVK(group, version, kind)
	if err != nil {
		panic(err)
	}
	return gvk
}

// FromAPIResource builds a GroupVersionKind from a discovered APIResource.
//
// groupVersion is the group version of the APIResourceList the resource was
// found in; it supplies the group and version when the resource does not
// declare its own. The plural is always taken from the resource name.
func FromAPIResource(ar metav1.APIResource, groupVersion string) GroupVersionKind {
	defaultGroup, defaultVersion := splitGroupVersion(groupVersion)

	group := ar.Group
	if group == "" {
		group = defaultGroup
	}
	version := ar.Version
	if version == "" {
		version = defaultVersion
	}

	return GroupVersionKind{
		group:      group,
		version:    version,
		kind:       ar.Kind,
		apiVersion: joinAPIVersion(group, version),
		plural:     ar.Name,
	}
}

// FromSchemaGVK converts an apimachinery GroupVersionKind.
func FromSchemaGVK(gvk schema.GroupVersionKind) (GroupVersionKind, error) {
	return NewGVK(gvk.Group, gvk.Version, gvk.Kind)
}

// WithPlural returns a copy with an explicit plural, avoiding inference.
func (g GroupVersionKind) WithPlural(plural string) GroupVersionKind {
	g.plural = plural
	return g
}

// Group returns the API group, empty for the core group.
func (g GroupVersionKind) Group() string { return g.group }

// Version returns the API version.
func (g GroupVersionKind) Version() string { return g.version }

// Kind returns the kind name.
func (g GroupVersionKind) Kind() string { return g.kind }

// APIVersion returns "group/version", or just the version for the core group.
func (g GroupVersionKind) APIVersion() string { return g.apiVersion }

// Plural returns the explicitly set plural, if any.
func (g GroupVersionKind) Plural() (string, bool) {
	return g.plural, g.plural != ""
}

// ResolvedPlural returns the explicit plural or the one inferred from the kind.
func (g GroupVersionKind) ResolvedPlural() string {
	if g.plural != "" {
		return g.plural
	}
	return ToPlural(strings.ToLower(g.kind))
}

// ToGVR returns the GroupVersionResource addressing the collection of this kind.
func (g GroupVersionKind) ToGVR() GroupVersionResource {
	return GroupVersionResource{
		group:      g.group,
		version:    g.version,
		resource:   g.ResolvedPlural(),
		apiVersion: g.apiVersion,
	}
}

// ToSchema converts to the apimachinery representation.
func (g GroupVersionKind) ToSchema() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: g.group, Version: g.version, Kind: g.kind}
}

// Empty reports whether this is the zero value.
func (g GroupVersionKind) Empty() bool {
	return g == GroupVersionKind{}
}

func (g GroupVersionKind) String() string {
	return fmt.Sprintf("%s, Kind=%s", g.apiVersion, g.kind)
}

type gvkWire struct {
	Group   string `json:"group"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

// MarshalJSON encodes the {group, version, kind} wire shape used by the
// admission API.
func (g GroupVersionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(gvkWire{Group: g.group, Version: g.version, Kind: g.kind})
}

// UnmarshalJSON decodes the {group, version, kind} wire shape. Values sent
// by the API server are trusted and not validated.
func (g *GroupVersionKind) UnmarshalJSON(data []byte) error {
	var w gvkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*g = GroupVersionKind{
		group:      w.Group,
		version:    w.Version,
		kind:       w.Kind,
		apiVersion: joinAPIVersion(w.Group, w.Version),
	}
	return nil
}

// GroupVersionResource identifies a resource collection by its API group,
// version and plural resource name.
type GroupVersionResource struct {
	group      string
	version    string
	resource   string
	apiVersion string
}

// NewGVR returns the GroupVersionResource for the given triple. The group may
// be empty; version and resource may not.
func NewGVR(group, version, resource string) (GroupVersionResource, error) {
	if version == "" {
		return GroupVersionResource{}, kerrors.NewDynamicType("GroupVersionResource '%s' must have a version", resource)
	}
	if resource == "" {
		return GroupVersionResource{}, kerrors.NewDynamicType("GroupVersionResource '%s' must have a resource", resource)
	}
	return GroupVersionResource{
		group:      group,
		version:    version,
		resource:   resource,
		apiVersion: joinAPIVersion(group, version),
	}, nil
}

// FromSchemaGVR converts an apimachinery GroupVersionResource.
func FromSchemaGVR(gvr schema.GroupVersionResource) (GroupVersionResource, error) {
	return NewGVR(gvr.Group, gvr.Version, gvr.Resource)
}

// Group returns the API group, empty for the core group.
func (g GroupVersionResource) Group() string { return g.group }

// Version returns the API version.
func (g GroupVersionResource) Version() string { return g.version }

// Resource returns the plural resource name.
func (g GroupVersionResource) Resource() string { return g.resource }

// APIVersion returns "group/version", or just the version for the core group.
func (g GroupVersionResource) APIVersion() string { return g.apiVersion }

// ToSchema converts to the apimachinery representation.
func (g GroupVersionResource) ToSchema() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: g.group, Version: g.version, Resource: g.resource}
}

// Empty reports whether this is the zero value.
func (g GroupVersionResource) Empty() bool {
	return g == GroupVersionResource{}
}

func (g GroupVersionResource) String() string {
	return fmt.Sprintf("%s, Resource=%s", g.apiVersion, g.resource)
}

type gvrWire struct {
	Group    string `json:"group"`
	Version  string `json:"version"`
	Resource string `json:"resource"`
}

// MarshalJSON encodes the {group, version, resource} wire shape.
func (g GroupVersionResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(gvrWire{Group: g.group, Version: g.version, Resource: g.resource})
}

// UnmarshalJSON decodes the {group, version, resource} wire shape.
func (g *GroupVersionResource) UnmarshalJSON(data []byte) error {
	var w gvrWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*g = GroupVersionResource{
		group:      w.Group,
		version:    w.Version,
		resource:   w.Resource,
		apiVersion: joinAPIVersion(w.Group, w.Version),
	}
	return nil
}

func joinAPIVersion(group, version string) string {
	if group == "" {
		return version
	}
	return group + "/" + version
}

// splitGroupVersion splits on the first "/". A single segment is the version
// of the core group.
func splitGroupVersion(groupVersion string) (string, string) {
	if group, version, ok := strings.Cut(groupVersion, "/"); ok {
		return group, version
	}
	return "", groupVersion
}
