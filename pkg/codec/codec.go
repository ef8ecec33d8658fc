// Package codec decodes JSON and YAML manifests into dynamic objects and
// encodes objects back in either format.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
	"github.com/dtomasi/kubecore/pkg/resource"
	"github.com/dtomasi/kubecore/pkg/runtime"
)

const (
	// MediaTypeJSON is the JSON media type.
	MediaTypeJSON = "application/json"
	// MediaTypeYAML is the YAML media type.
	MediaTypeYAML = "application/yaml"

	// bufferSize is the read-ahead used to sniff JSON vs YAML in streams.
	bufferSize = 4096
)

// IsJSON reports whether data looks like a JSON document.
func IsJSON(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && (data[0] == '{' || data[0] == '[')
}

// Decode decodes a single JSON or YAML manifest and returns it with its
// GroupVersionKind. When the manifest carries no apiVersion/kind, defaults is
// used instead; without defaults that is an error.
func Decode(data []byte, defaults *runtime.GroupVersionKind) (*resource.DynamicObject, runtime.GroupVersionKind, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, runtime.GroupVersionKind{}, fmt.Errorf("cannot decode empty data")
	}

	jsonData := data
	if !IsJSON(data) {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, runtime.GroupVersionKind{}, kerrors.NewSerialization("convert YAML to JSON", err)
		}
		jsonData = converted
	}

	obj := &resource.DynamicObject{}
	if err := json.Unmarshal(jsonData, obj); err != nil {
		return nil, runtime.GroupVersionKind{}, kerrors.NewSerialization("decode object", err)
	}

	gvk, err := kindOf(obj, defaults)
	if err != nil {
		return nil, runtime.GroupVersionKind{}, err
	}
	return obj, gvk, nil
}

// DecodeAll decodes every document of a JSON or multi-document YAML stream.
// Empty documents are skipped.
func DecodeAll(r io.Reader, defaults *runtime.GroupVersionKind) ([]*resource.DynamicObject, error) {
	decoder := utilyaml.NewYAMLOrJSONDecoder(r, bufferSize)
	var objects []*resource.DynamicObject
	for i := 0; ; i++ {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return objects, nil
			}
			return nil, kerrors.NewSerialization(fmt.Sprintf("decode document %d", i), err)
		}
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		obj, _, err := Decode(raw, defaults)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		objects = append(objects, obj)
	}
}

// Encode writes obj in the given media type.
func Encode(obj interface{}, mediaType string, w io.Writer) error {
	var (
		data []byte
		err  error
	)
	switch mediaType {
	case MediaTypeJSON:
		data, err = json.Marshal(obj)
	case MediaTypeYAML:
		data, err = yaml.Marshal(obj)
	default:
		return fmt.Errorf("unsupported media type %q", mediaType)
	}
	if err != nil {
		return kerrors.NewSerialization("encode object as "+mediaType, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s data: %w", mediaType, err)
	}
	return nil
}

// kindOf determines the GVK from the object's type information, falling back
// to defaults. Types are filled in from defaults when missing.
func kindOf(obj *resource.DynamicObject, defaults *runtime.GroupVersionKind) (runtime.GroupVersionKind, error) {
	if obj.Types != nil {
		gv, err := schema.ParseGroupVersion(obj.Types.APIVersion)
		if err != nil {
			return runtime.GroupVersionKind{}, fmt.Errorf("invalid apiVersion: %w", err)
		}
		return runtime.NewGVK(gv.Group, gv.Version, obj.Types.Kind)
	}
	if defaults == nil {
		return runtime.GroupVersionKind{}, fmt.Errorf("cannot determine GVK from data and no defaults provided")
	}
	obj.Types = &metav1.TypeMeta{APIVersion: defaults.APIVersion(), Kind: defaults.Kind()}
	return *defaults, nil
}
