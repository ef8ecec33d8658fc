package admission

import (
	"encoding/json"
	"fmt"

	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"

	"github.com/dtomasi/kubecore/pkg/runtime"
)

// Operation is the resolved operation being admitted. It can differ from the
// HTTP verb: a PATCH that creates a missing object arrives as CREATE.
type Operation string

const (
	Create  Operation = "CREATE"
	Update  Operation = "UPDATE"
	Delete  Operation = "DELETE"
	Connect Operation = "CONNECT"
)

// UnmarshalJSON rejects operations outside the protocol's fixed set.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch op := Operation(s); op {
	case Create, Update, Delete, Connect:
		*o = op
		return nil
	default:
		return fmt.Errorf("unknown admission operation %q", s)
	}
}

// AdmissionRequest describes an operation submitted for admission. K is the
// object representation, e.g. resource.DynamicObject or a typed struct.
type AdmissionRequest[K any] struct {
	// types is the envelope's apiVersion/kind. It is not part of the
	// request's wire form and only used to build the response envelope.
	types metav1.TypeMeta

	// UID identifies this exchange; the response must echo it.
	UID string `json:"uid"`
	// Kind is the type of the object being admitted.
	Kind runtime.GroupVersionKind `json:"kind"`
	// Resource is the resource being requested.
	Resource runtime.GroupVersionResource `json:"resource"`
	// SubResource is set for subresource requests such as "status" or "scale".
	SubResource *string `json:"subResource,omitempty"`
	// RequestKind, RequestResource and RequestSubResource describe the
	// original request when the API server converted it to a version the
	// webhook registered for (matchPolicy: Equivalent).
	RequestKind        *runtime.GroupVersionKind     `json:"requestKind,omitempty"`
	RequestResource    *runtime.GroupVersionResource `json:"requestResource,omitempty"`
	RequestSubResource *string                       `json:"requestSubResource,omitempty"`
	// Name of the object. Empty on CREATE when the server generates it.
	Name string `json:"name"`
	// Namespace of the object, absent for cluster-scoped resources.
	Namespace *string `json:"namespace,omitempty"`
	// Operation is the resolved operation.
	Operation Operation `json:"operation"`
	// UserInfo describes the requesting user.
	UserInfo authenticationv1.UserInfo `json:"userInfo"`
	// Object is the new object. Absent for DELETE.
	Object *K `json:"object,omitempty"`
	// OldObject is the existing object. Only set for UPDATE and DELETE.
	OldObject *K `json:"oldObject,omitempty"`
	// DryRun means side effects must be suppressed.
	DryRun bool `json:"dryRun"`
	// Options holds the operation options, e.g. meta.k8s.io/v1 CreateOptions.
	Options *k8sruntime.RawExtension `json:"options,omitempty"`
}

// Types returns the envelope type information the request arrived with.
func (r *AdmissionRequest[K]) Types() metav1.TypeMeta {
	return r.types
}

// NamespaceName returns the namespace, if set.
func (r *AdmissionRequest[K]) NamespaceName() (string, bool) {
	if r.Namespace == nil {
		return "", false
	}
	return *r.Namespace, true
}

// Converted reports whether the API server converted the request from a
// different kind or resource than the webhook registered for.
func (r *AdmissionRequest[K]) Converted() bool {
	return (r.RequestKind != nil && *r.RequestKind != r.Kind) ||
		(r.RequestResource != nil && *r.RequestResource != r.Resource)
}
