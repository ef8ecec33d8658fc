// Package admission implements the AdmissionReview webhook protocol.
//
// An exchange moves through four stages: an AdmissionReview is received, it is
// converted into an AdmissionRequest, an AdmissionResponse is built from the
// request, and the response is wrapped back into an AdmissionReview. Every
// stage is a pure transformation, so exchanges can be processed concurrently
// without coordination.
package admission

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
	"github.com/dtomasi/kubecore/pkg/resource"
)

const (
	// MetaKind is the kind of every AdmissionReview.
	MetaKind = "AdmissionReview"
	// MetaAPIVersionV1 is the admission.k8s.io/v1 API version.
	MetaAPIVersionV1 = "admission.k8s.io/v1"
	// MetaAPIVersionV1beta1 is the admission.k8s.io/v1beta1 API version.
	MetaAPIVersionV1beta1 = "admission.k8s.io/v1beta1"
)

// AdmissionReview is the envelope exchanged with the API server. Request is
// set on the way in and Response on the way out.
type AdmissionReview[K any] struct {
	metav1.TypeMeta `json:",inline"`

	// Request describes the operation being admitted.
	Request *AdmissionRequest[K] `json:"request,omitempty"`
	// Response is the webhook's decision.
	Response *AdmissionResponse `json:"response,omitempty"`
}

// DynamicReview is an AdmissionReview carrying schema-less objects.
type DynamicReview = AdmissionReview[resource.DynamicObject]

// ToRequest extracts the request, threading the envelope type information
// through so a matching response envelope can be built. A review without a
// request is malformed or misdirected and yields a RequestValidationError.
func (r *AdmissionReview[K]) ToRequest() (*AdmissionRequest[K], error) {
	if r.Request == nil {
		return nil, kerrors.NewRequestValidation("invalid AdmissionRequest: expected request but got none")
	}
	req := *r.Request
	req.types = r.TypeMeta
	return &req, nil
}
