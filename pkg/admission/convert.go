package admission

import (
	"encoding/json"

	admissionv1 "k8s.io/api/admission/v1"
	admissionv1beta1 "k8s.io/api/admission/v1beta1"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// ToV1 converts review into the upstream admission.k8s.io/v1 type.
func ToV1[K any](review *AdmissionReview[K]) (*admissionv1.AdmissionReview, error) {
	out := &admissionv1.AdmissionReview{}
	if err := convert(review, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToV1beta1 converts review into the upstream admission.k8s.io/v1beta1 type.
func ToV1beta1[K any](review *AdmissionReview[K]) (*admissionv1beta1.AdmissionReview, error) {
	out := &admissionv1beta1.AdmissionReview{}
	if err := convert(review, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromV1 converts an upstream admission.k8s.io/v1 review.
func FromV1[K any](review *admissionv1.AdmissionReview) (*AdmissionReview[K], error) {
	out := &AdmissionReview[K]{}
	if err := convert(review, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromV1beta1 converts an upstream admission.k8s.io/v1beta1 review.
func FromV1beta1[K any](review *admissionv1beta1.AdmissionReview) (*AdmissionReview[K], error) {
	out := &AdmissionReview[K]{}
	if err := convert(review, out); err != nil {
		return nil, err
	}
	return out, nil
}

// convert goes through the shared wire form, which both sides implement.
func convert(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return kerrors.NewSerialization("encode admission review", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return kerrors.NewSerialization("decode admission review", err)
	}
	return nil
}
