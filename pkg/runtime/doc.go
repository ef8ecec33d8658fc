// Package runtime provides resource type identity for kubecore: the
// GroupVersionKind and GroupVersionResource values used to address API
// resources, plural inference, and a discovery-backed GVK/GVR mapper.
package runtime
