package resource

import (
	"encoding/json"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/dtomasi/kubecore/pkg/runtime"
)

// NotUsed is an empty payload for objects without a status, or wherever data
// should be discarded on decode.
type NotUsed struct{}

// Object is a typed resource following the spec/status convention.
//
// It is stricter than DynamicObject and will not decode every discovered
// resource, but lets callers model just the fields they care about.
type Object[S, U any] struct {
	// Types holds apiVersion and kind.
	Types metav1.TypeMeta
	// Metadata is the standard object metadata.
	Metadata metav1.ObjectMeta
	// Spec is the desired state.
	Spec S
	// Status is the observed state. It is omitted from the encoded form
	// when nil.
	Status *U
}

var _ Resource[runtime.GroupVersionKind] = &Object[NotUsed, NotUsed]{}

// NewObject creates an Object with type information from gvk, the given name
// and spec.
func NewObject[S, U any](name string, gvk runtime.GroupVersionKind, spec S) *Object[S, U] {
	return &Object[S, U]{
		Types: metav1.TypeMeta{
			APIVersion: gvk.APIVersion(),
			Kind:       gvk.Kind(),
		},
		Metadata: metav1.ObjectMeta{Name: name},
		Spec:     spec,
	}
}

// Group implements Resource.
func (*Object[S, U]) Group(dt runtime.GroupVersionKind) string { return dt.Group() }

// Version implements Resource.
func (*Object[S, U]) Version(dt runtime.GroupVersionKind) string { return dt.Version() }

// Kind implements Resource.
func (*Object[S, U]) Kind(dt runtime.GroupVersionKind) string { return dt.Kind() }

// APIVersion implements Resource.
func (*Object[S, U]) APIVersion(dt runtime.GroupVersionKind) string { return dt.APIVersion() }

// Plural implements Resource. Without an explicit plural on dt it is
// inferred from the lower-cased kind.
func (*Object[S, U]) Plural(dt runtime.GroupVersionKind) string {
	if plural, ok := dt.Plural(); ok {
		return plural
	}
	return runtime.ToPlural(strings.ToLower(dt.Kind()))
}

// Meta implements Resource.
func (o *Object[S, U]) Meta() *metav1.ObjectMeta { return &o.Metadata }

// Name implements Resource.
func (o *Object[S, U]) Name() string {
	if o.Metadata.Name == "" {
		panic("missing name")
	}
	return o.Metadata.Name
}

// Namespace implements Resource.
func (o *Object[S, U]) Namespace() (string, bool) { return namespaceOf(&o.Metadata) }

// ResourceVersion implements Resource.
func (o *Object[S, U]) ResourceVersion() (string, bool) { return resourceVersionOf(&o.Metadata) }

type objectWire[S, U any] struct {
	APIVersion string            `json:"apiVersion"`
	Kind       string            `json:"kind"`
	Metadata   metav1.ObjectMeta `json:"metadata"`
	Spec       S                 `json:"spec"`
	Status     *U                `json:"status,omitempty"`
}

// MarshalJSON flattens the type information next to metadata, spec and status.
func (o Object[S, U]) MarshalJSON() ([]byte, error) {
	return json.Marshal(objectWire[S, U]{
		APIVersion: o.Types.APIVersion,
		Kind:       o.Types.Kind,
		Metadata:   o.Metadata,
		Spec:       o.Spec,
		Status:     o.Status,
	})
}

// UnmarshalJSON decodes the flat wire form.
func (o *Object[S, U]) UnmarshalJSON(data []byte) error {
	var w objectWire[S, U]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Object[S, U]{
		Types:    metav1.TypeMeta{APIVersion: w.APIVersion, Kind: w.Kind},
		Metadata: w.Metadata,
		Spec:     w.Spec,
		Status:   w.Status,
	}
	return nil
}
