// Package resource defines the capability every object representation
// implements so generic code can address it through the API, together with
// the dynamic and typed representations shipped with kubecore.
package resource

import (
	"path"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// Resource is implemented by every object representation usable with the API.
//
// DT is the descriptor the representation needs to report its type
// information: a runtime.GroupVersionKind for dynamic and generic objects,
// struct{} for types that know their identity statically.
//
// The descriptor methods are called on the zero value of the implementing
// type (a nil pointer for pointer receivers) and must not touch the receiver.
type Resource[DT any] interface {
	// Group returns the API group, empty for the core group.
	Group(dt DT) string
	// Version returns the API version.
	Version(dt DT) string
	// Kind returns the kind name.
	Kind(dt DT) string
	// APIVersion returns "group/version", or the version for the core group.
	APIVersion(dt DT) string
	// Plural returns the resource name used in API paths.
	Plural(dt DT) string

	// Meta returns the object metadata for reading and writing.
	Meta() *metav1.ObjectMeta
	// Name returns the object name. It panics when the name is missing,
	// since every object submitted to or returned by the server has one.
	Name() string
	// Namespace returns the namespace, if set.
	Namespace() (string, bool)
	// ResourceVersion returns the resource version, if set.
	ResourceVersion() (string, bool)
}

// URLPath returns the collection path for K, scoped to namespace unless it is
// empty: /api/v1[/namespaces/{ns}]/{plural} for the core group and
// /apis/{group}/{version}[/namespaces/{ns}]/{plural} otherwise.
func URLPath[K Resource[DT], DT any](dt DT, namespace string) string {
	var k K
	return urlPath(k.Group(dt), k.APIVersion(dt), k.Plural(dt), namespace)
}

// ObjectPath returns the path of obj within its collection.
func ObjectPath[K Resource[DT], DT any](dt DT, obj K) string {
	ns, _ := obj.Namespace()
	return path.Join(URLPath[K](dt, ns), obj.Name())
}

func urlPath(group, apiVersion, plural, namespace string) string {
	prefix := "apis"
	if group == "" {
		prefix = "api"
	}
	if namespace != "" {
		return "/" + path.Join(prefix, apiVersion, "namespaces", namespace, plural)
	}
	return "/" + path.Join(prefix, apiVersion, plural)
}

// namespaceOf and resourceVersionOf are shared by the representations in
// this package.
func namespaceOf(meta *metav1.ObjectMeta) (string, bool) {
	return meta.Namespace, meta.Namespace != ""
}

func resourceVersionOf(meta *metav1.ObjectMeta) (string, bool) {
	return meta.ResourceVersion, meta.ResourceVersion != ""
}

// Validate checks the identifying metadata of obj before it is sent: the
// name must be a DNS-1123 subdomain and the namespace, if set, a DNS-1123
// label. Server-generated names (generateName) are accepted.
func Validate(obj interface{ Meta() *metav1.ObjectMeta }) error {
	meta := obj.Meta()
	switch {
	case meta.Name != "":
		if errs := validation.IsDNS1123Subdomain(meta.Name); len(errs) > 0 {
			return kerrors.NewRequestValidation("invalid name %q: %s", meta.Name, strings.Join(errs, "; "))
		}
	case meta.GenerateName == "":
		return kerrors.NewRequestValidation("name or generateName is required")
	}
	if meta.Namespace != "" {
		if errs := validation.IsDNS1123Label(meta.Namespace); len(errs) > 0 {
			return kerrors.NewRequestValidation("invalid namespace %q: %s", meta.Namespace, strings.Join(errs, "; "))
		}
	}
	return nil
}
