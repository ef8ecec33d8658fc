package resource

import (
	"encoding/json"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"
	utiljson "k8s.io/apimachinery/pkg/util/json"

	"github.com/dtomasi/kubecore/pkg/runtime"
)

// DynamicObject is a schema-less representation of any non-list resource.
//
// Every top-level field other than apiVersion, kind and metadata is kept in
// Data, so unknown schemas survive a decode/encode round trip unchanged.
type DynamicObject struct {
	// Types is only set when both apiVersion and kind are present.
	Types *metav1.TypeMeta
	// Metadata is the standard object metadata.
	Metadata metav1.ObjectMeta
	// Data holds all other top-level fields (spec, status, data, ...).
	// Values follow the encoding/json conventions for interface{}, with whole
	// numbers decoded as int64.
	Data map[string]interface{}
}

var _ Resource[runtime.GroupVersionKind] = &DynamicObject{}

// NewDynamicObject creates a DynamicObject with type information from gvk
// and the given name.
func NewDynamicObject(name string, gvk runtime.GroupVersionKind) *DynamicObject {
	return &DynamicObject{
		Types: &metav1.TypeMeta{
			APIVersion: gvk.APIVersion(),
			Kind:       gvk.Kind(),
		},
		Metadata: metav1.ObjectMeta{Name: name},
	}
}

// WithData replaces the dynamic data.
func (d *DynamicObject) WithData(data map[string]interface{}) *DynamicObject {
	d.Data = data
	return d
}

// WithNamespace sets the namespace.
func (d *DynamicObject) WithNamespace(namespace string) *DynamicObject {
	d.Metadata.Namespace = namespace
	return d
}

// Group implements Resource.
func (*DynamicObject) Group(dt runtime.GroupVersionKind) string { return dt.Group() }

// Version implements Resource.
func (*DynamicObject) Version(dt runtime.GroupVersionKind) string { return dt.Version() }

// Kind implements Resource.
func (*DynamicObject) Kind(dt runtime.GroupVersionKind) string { return dt.Kind() }

// APIVersion implements Resource.
func (*DynamicObject) APIVersion(dt runtime.GroupVersionKind) string { return dt.APIVersion() }

// Plural implements Resource. Without an explicit plural on dt it is
// inferred from the lower-cased kind.
func (*DynamicObject) Plural(dt runtime.GroupVersionKind) string {
	if plural, ok := dt.Plural(); ok {
		return plural
	}
	return runtime.ToPlural(strings.ToLower(dt.Kind()))
}

// Meta implements Resource.
func (d *DynamicObject) Meta() *metav1.ObjectMeta { return &d.Metadata }

// Name implements Resource.
func (d *DynamicObject) Name() string {
	if d.Metadata.Name == "" {
		panic("missing name")
	}
	return d.Metadata.Name
}

// Namespace implements Resource.
func (d *DynamicObject) Namespace() (string, bool) { return namespaceOf(&d.Metadata) }

// ResourceVersion implements Resource.
func (d *DynamicObject) ResourceVersion() (string, bool) { return resourceVersionOf(&d.Metadata) }

// Field returns the value at the given path below Data.
func (d *DynamicObject) Field(fields ...string) (interface{}, bool, error) {
	return unstructured.NestedFieldNoCopy(d.Data, fields...)
}

// SetField sets value at the given path below Data, creating intermediate
// maps as needed.
func (d *DynamicObject) SetField(value interface{}, fields ...string) error {
	if d.Data == nil {
		d.Data = make(map[string]interface{})
	}
	return unstructured.SetNestedField(d.Data, value, fields...)
}

// DeepCopy returns an independent copy. Data must only hold JSON-compatible
// values (see Data).
func (d *DynamicObject) DeepCopy() *DynamicObject {
	if d == nil {
		return nil
	}
	out := &DynamicObject{}
	if d.Types != nil {
		types := *d.Types
		out.Types = &types
	}
	d.Metadata.DeepCopyInto(&out.Metadata)
	if d.Data != nil {
		out.Data = k8sruntime.DeepCopyJSON(d.Data)
	}
	return out
}

// MarshalJSON flattens type information, metadata and data into one object.
func (d DynamicObject) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Data)+3)
	for k, v := range d.Data {
		out[k] = v
	}
	if d.Types != nil {
		out["apiVersion"] = d.Types.APIVersion
		out["kind"] = d.Types.Kind
	}
	out["metadata"] = d.Metadata
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat object into type information, metadata and data.
func (d *DynamicObject) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	if err := utiljson.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("dynamic object must be a JSON object")
	}

	var wire struct {
		Metadata metav1.ObjectMeta `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	out := DynamicObject{Metadata: wire.Metadata}
	apiVersion, hasAPIVersion := fields["apiVersion"].(string)
	kind, hasKind := fields["kind"].(string)
	if hasAPIVersion && hasKind {
		out.Types = &metav1.TypeMeta{APIVersion: apiVersion, Kind: kind}
		delete(fields, "apiVersion")
		delete(fields, "kind")
	}
	delete(fields, "metadata")
	out.Data = fields

	*d = out
	return nil
}

// ToUnstructured converts to the apimachinery unstructured representation.
func (d *DynamicObject) ToUnstructured() (*unstructured.Unstructured, error) {
	content, err := k8sruntime.DefaultUnstructuredConverter.ToUnstructured(&d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata: %w", err)
	}
	obj := make(map[string]interface{}, len(d.Data)+3)
	for k, v := range d.Data {
		obj[k] = v
	}
	obj["metadata"] = content
	u := &unstructured.Unstructured{Object: obj}
	if d.Types != nil {
		u.SetAPIVersion(d.Types.APIVersion)
		u.SetKind(d.Types.Kind)
	}
	return u, nil
}

// FromUnstructured converts from the apimachinery unstructured representation.
func FromUnstructured(u *unstructured.Unstructured) (*DynamicObject, error) {
	data, err := u.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode unstructured object: %w", err)
	}
	out := &DynamicObject{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to decode dynamic object: %w", err)
	}
	return out, nil
}
