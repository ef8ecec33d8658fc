package admission

import (
	"encoding/json"
	"net/http"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
	"github.com/dtomasi/kubecore/pkg/patch"
	"github.com/dtomasi/kubecore/pkg/resource"
)

// PatchType is the encoding of AdmissionResponse.Patch.
type PatchType string

// PatchTypeJSONPatch is RFC 6902 JSON Patch, the only type the API server accepts.
const PatchTypeJSONPatch PatchType = "JSONPatch"

// AdmissionResponse is the webhook's decision for one AdmissionRequest.
type AdmissionResponse struct {
	types metav1.TypeMeta

	// UID must equal the uid of the request being answered.
	UID string `json:"uid"`
	// Allowed admits or rejects the operation.
	Allowed bool `json:"allowed"`
	// Result carries the rejection details. Ignored when Allowed is true and
	// left off the wire until Deny, Invalid or WithStatus sets it, matching
	// admission/v1.
	Result *metav1.Status `json:"status,omitempty"`
	// Patch is a JSON patch applied to the object when Allowed is true.
	Patch []byte `json:"patch,omitempty"`
	// PatchType is set whenever Patch is.
	PatchType *PatchType `json:"patchType,omitempty"`
	// AuditAnnotations are added to the audit event of the request.
	AuditAnnotations map[string]string `json:"auditAnnotations,omitempty"`
	// Warnings are returned to the requesting client.
	Warnings []string `json:"warnings,omitempty"`
}

// NewResponse returns an allowing response that answers req.
func NewResponse[K any](req *AdmissionRequest[K]) *AdmissionResponse {
	return &AdmissionResponse{
		types:   req.types,
		UID:     req.UID,
		Allowed: true,
	}
}

// Invalid returns a denying response for a request that could not be read.
// The uid is unknown and left empty, and the envelope defaults to
// admission.k8s.io/v1beta1 which every server version accepts.
func Invalid(reason string) *AdmissionResponse {
	return &AdmissionResponse{
		types: metav1.TypeMeta{
			Kind:       MetaKind,
			APIVersion: MetaAPIVersionV1beta1,
		},
		Allowed: false,
		Result: &metav1.Status{
			Status:  metav1.StatusFailure,
			Message: reason,
			Reason:  metav1.StatusReasonBadRequest,
			Code:    http.StatusBadRequest,
		},
	}
}

// Types returns the envelope type information of the response.
func (r *AdmissionResponse) Types() metav1.TypeMeta {
	return r.types
}

// Deny rejects the operation with reason, which is shown to the requesting
// client. The uid and envelope types are kept.
func (r *AdmissionResponse) Deny(reason string) *AdmissionResponse {
	r.Allowed = false
	if r.Result == nil {
		r.Result = &metav1.Status{}
	}
	r.Result.Status = metav1.StatusFailure
	r.Result.Message = reason
	return r
}

// WithPatch attaches a JSON patch that mutates the admitted object.
//
// A patch can be attached to a denied response as well. The API server never
// applies patches of denied responses, so it has no effect there.
func (r *AdmissionResponse) WithPatch(doc patch.JSONPatchDocument) (*AdmissionResponse, error) {
	if doc == nil {
		doc = patch.JSONPatchDocument{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, kerrors.NewSerialization("encode admission patch", err)
	}
	patchType := PatchTypeJSONPatch
	r.Patch = data
	r.PatchType = &patchType
	return r, nil
}

// WithWarnings appends warnings for the requesting client.
func (r *AdmissionResponse) WithWarnings(warnings ...string) *AdmissionResponse {
	r.Warnings = append(r.Warnings, warnings...)
	return r
}

// WithAuditAnnotation records key=value on the audit event. The server
// prefixes the key with the webhook name.
func (r *AdmissionResponse) WithAuditAnnotation(key, value string) *AdmissionResponse {
	if r.AuditAnnotations == nil {
		r.AuditAnnotations = make(map[string]string)
	}
	r.AuditAnnotations[key] = value
	return r
}

// WithStatus replaces the result status, e.g. to set a reason and code on a
// denial.
func (r *AdmissionResponse) WithStatus(status metav1.Status) *AdmissionResponse {
	r.Result = &status
	return r
}

// IntoReview wraps the response into an AdmissionReview ready to be sent.
func (r *AdmissionResponse) IntoReview() *DynamicReview {
	return &AdmissionReview[resource.DynamicObject]{
		TypeMeta: r.types,
		Response: r,
	}
}
