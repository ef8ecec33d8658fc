// Package patch models the patch strategies accepted by the API server and
// their wire encoding.
package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/strategicpatch"
	"sigs.k8s.io/yaml"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// Patch is one of Apply, JSON, Merge or Strategic. The set is closed: the
// server only understands these strategies.
type Patch interface {
	// Type is the patch strategy, which doubles as the request content type.
	Type() types.PatchType
	// ContentType is the MIME type of the serialized body.
	ContentType() string
	// Serialize encodes the patch body.
	Serialize() ([]byte, error)
	// IsApply reports whether this is a server-side apply patch.
	IsApply() bool

	isPatch()
}

// Apply is a server-side apply patch: a partial object whose fields are owned
// by the request's field manager.
type Apply[T any] struct {
	Value T
}

// JSON is an RFC 6902 patch.
type JSON struct {
	Document JSONPatchDocument
}

// Merge is an RFC 7386 JSON merge patch.
type Merge[T any] struct {
	Value T
}

// Strategic is a strategic merge patch, only supported by built-in types.
type Strategic[T any] struct {
	Value T
}

var (
	_ Patch = Apply[any]{}
	_ Patch = JSON{}
	_ Patch = Merge[any]{}
	_ Patch = Strategic[any]{}
)

func (Apply[T]) isPatch()     {}
func (JSON) isPatch()         {}
func (Merge[T]) isPatch()     {}
func (Strategic[T]) isPatch() {}

// Type implements Patch.
func (Apply[T]) Type() types.PatchType { return types.ApplyPatchType }

// Type implements Patch.
func (JSON) Type() types.PatchType { return types.JSONPatchType }

// Type implements Patch.
func (Merge[T]) Type() types.PatchType { return types.MergePatchType }

// Type implements Patch.
func (Strategic[T]) Type() types.PatchType { return types.StrategicMergePatchType }

// ContentType implements Patch.
func (p Apply[T]) ContentType() string { return string(p.Type()) }

// ContentType implements Patch.
func (p JSON) ContentType() string { return string(p.Type()) }

// ContentType implements Patch.
func (p Merge[T]) ContentType() string { return string(p.Type()) }

// ContentType implements Patch.
func (p Strategic[T]) ContentType() string { return string(p.Type()) }

// IsApply implements Patch.
func (Apply[T]) IsApply() bool { return true }

// IsApply implements Patch.
func (JSON) IsApply() bool { return false }

// IsApply implements Patch.
func (Merge[T]) IsApply() bool { return false }

// IsApply implements Patch.
func (Strategic[T]) IsApply() bool { return false }

// Serialize implements Patch. JSON is valid YAML, so the apply body is sent
// as JSON despite the YAML content type.
func (p Apply[T]) Serialize() ([]byte, error) { return serialize(p.Value) }

// Serialize implements Patch.
func (p JSON) Serialize() ([]byte, error) {
	ops := p.Document
	if ops == nil {
		ops = JSONPatchDocument{}
	}
	return serialize(ops)
}

// Serialize implements Patch.
func (p Merge[T]) Serialize() ([]byte, error) { return serialize(p.Value) }

// Serialize implements Patch.
func (p Strategic[T]) Serialize() ([]byte, error) { return serialize(p.Value) }

// YAML renders the apply body as YAML, e.g. for logging or dry-run output.
func (p Apply[T]) YAML() ([]byte, error) {
	data, err := yaml.Marshal(p.Value)
	if err != nil {
		return nil, kerrors.NewSerialization("encode apply patch as YAML", err)
	}
	return data, nil
}

func serialize(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, kerrors.NewSerialization("serialize patch", err)
	}
	return data, nil
}

// CreateMergePatch computes the JSON merge patch turning original into modified.
func CreateMergePatch(original, modified interface{}) (Merge[json.RawMessage], error) {
	originalData, err := json.Marshal(original)
	if err != nil {
		return Merge[json.RawMessage]{}, kerrors.NewSerialization("marshal original object", err)
	}
	modifiedData, err := json.Marshal(modified)
	if err != nil {
		return Merge[json.RawMessage]{}, kerrors.NewSerialization("marshal modified object", err)
	}
	patchData, err := jsonpatch.CreateMergePatch(originalData, modifiedData)
	if err != nil {
		return Merge[json.RawMessage]{}, fmt.Errorf("failed to create merge patch: %w", err)
	}
	return Merge[json.RawMessage]{Value: patchData}, nil
}

// CreateStrategicMergePatch computes the strategic merge patch turning
// original into modified. dataStruct is a value of the built-in Go type
// whose struct tags carry the patch strategy, e.g. &corev1.Pod{}.
func CreateStrategicMergePatch(original, modified, dataStruct interface{}) (Strategic[json.RawMessage], error) {
	originalData, err := json.Marshal(original)
	if err != nil {
		return Strategic[json.RawMessage]{}, kerrors.NewSerialization("marshal original object", err)
	}
	modifiedData, err := json.Marshal(modified)
	if err != nil {
		return Strategic[json.RawMessage]{}, kerrors.NewSerialization("marshal modified object", err)
	}
	patchData, err := strategicpatch.CreateTwoWayMergePatch(originalData, modifiedData, dataStruct)
	if err != nil {
		return Strategic[json.RawMessage]{}, fmt.Errorf("failed to create strategic merge patch: %w", err)
	}
	return Strategic[json.RawMessage]{Value: patchData}, nil
}
