package admission_test

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	admissionv1 "k8s.io/api/admission/v1"
	admissionv1beta1 "k8s.io/api/admission/v1beta1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/dtomasi/kubecore/pkg/admission"
	"github.com/dtomasi/kubecore/pkg/patch"
	"github.com/dtomasi/kubecore/pkg/resource"
)

var _ = Describe("AdmissionResponse", func() {
	var req *admission.AdmissionRequest[resource.DynamicObject]

	BeforeEach(func() {
		var err error
		req, err = loadReview("pod-create.json").ToRequest()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should allow by default", func() {
		resp := admission.NewResponse(req)
		Expect(resp.Allowed).To(BeTrue())
		Expect(resp.UID).To(Equal(req.UID))
		Expect(resp.Types()).To(Equal(req.Types()))
		Expect(resp.Result).To(BeNil())
	})

	It("should deny with a message and keep the correlation fields", func() {
		resp := admission.NewResponse(req).Deny("x")
		Expect(resp.Allowed).To(BeFalse())
		Expect(resp.Result.Message).To(Equal("x"))
		Expect(resp.Result.Status).To(Equal(metav1.StatusFailure))
		Expect(resp.UID).To(Equal(req.UID))
		Expect(resp.Types()).To(Equal(req.Types()))
	})

	It("should build a schema-valid rejection for unreadable requests", func() {
		resp := admission.Invalid("cannot parse body")
		Expect(resp.UID).To(BeEmpty())
		Expect(resp.Allowed).To(BeFalse())
		Expect(resp.Types()).To(Equal(metav1.TypeMeta{Kind: "AdmissionReview", APIVersion: "admission.k8s.io/v1beta1"}))
		Expect(resp.Result.Message).To(Equal("cannot parse body"))
		Expect(resp.Result.Reason).To(Equal(metav1.StatusReasonBadRequest))
		Expect(resp.Result.Code).To(Equal(int32(http.StatusBadRequest)))

		out, err := admission.ToV1beta1(resp.IntoReview())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.APIVersion).To(Equal("admission.k8s.io/v1beta1"))
		Expect(out.Response.Allowed).To(BeFalse())
		Expect(out.Response.Result.Message).To(Equal("cannot parse body"))
	})

	It("should attach a JSON patch", func() {
		doc := patch.JSONPatchDocument{patch.Add("/metadata/labels/team", "platform")}
		resp, err := admission.NewResponse(req).WithPatch(doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(*resp.PatchType).To(Equal(admission.PatchTypeJSONPatch))
		Expect(resp.Patch).To(MatchJSON(`[{"op":"add","path":"/metadata/labels/team","value":"platform"}]`))

		data, err := json.Marshal(resp.IntoReview())
		Expect(err).NotTo(HaveOccurred())
		var wire struct {
			Response map[string]interface{} `json:"response"`
		}
		Expect(json.Unmarshal(data, &wire)).To(Succeed())
		Expect(wire.Response).To(HaveKeyWithValue("patchType", "JSONPatch"))
		Expect(wire.Response["patch"]).To(BeAssignableToTypeOf(""))
	})

	It("should permit a patch on a denied response", func() {
		resp, err := admission.NewResponse(req).Deny("no").WithPatch(patch.JSONPatchDocument{patch.Remove("/spec/volumes")})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Allowed).To(BeFalse())
		Expect(resp.Patch).NotTo(BeEmpty())
	})

	It("should collect warnings and audit annotations", func() {
		resp := admission.NewResponse(req).
			WithWarnings("image uses latest tag").
			WithWarnings("no resource limits").
			WithAuditAnnotation("policy", "images").
			WithStatus(metav1.Status{Code: http.StatusForbidden, Reason: metav1.StatusReasonForbidden})
		Expect(resp.Warnings).To(Equal([]string{"image uses latest tag", "no resource limits"}))
		Expect(resp.AuditAnnotations).To(HaveKeyWithValue("policy", "images"))
		Expect(resp.Result.Code).To(Equal(int32(http.StatusForbidden)))
	})

	It("should omit empty optional fields", func() {
		data, err := json.Marshal(admission.NewResponse(req))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"uid":"0c9a8d74-9cb7-44dd-b98e-09fd62def2f4","allowed":true}`))
	})

	It("should write status only once a decision carries one", func() {
		allowed, err := json.Marshal(admission.NewResponse(req))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(allowed)).NotTo(ContainSubstring(`"status"`))

		denied, err := json.Marshal(admission.NewResponse(req).Deny("no"))
		Expect(err).NotTo(HaveOccurred())
		var wire map[string]interface{}
		Expect(json.Unmarshal(denied, &wire)).To(Succeed())
		Expect(wire).To(HaveKey("status"))
		Expect(wire["status"]).To(HaveKeyWithValue("message", "no"))

		out, err := admission.ToV1(admission.NewResponse(req).IntoReview())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Response.Result).To(BeNil())
	})

	Describe("upstream compatibility", func() {
		It("should decode into the admission/v1 types", func() {
			resp, err := admission.NewResponse(req).
				WithAuditAnnotation("mutated", "true").
				WithWarnings("defaulted").
				WithPatch(patch.JSONPatchDocument{patch.Add("/metadata/labels/team", "platform")})
			Expect(err).NotTo(HaveOccurred())

			out, err := admission.ToV1(resp.IntoReview())
			Expect(err).NotTo(HaveOccurred())
			Expect(out.APIVersion).To(Equal(admission.MetaAPIVersionV1))
			Expect(out.Response).NotTo(BeNil())
			Expect(string(out.Response.UID)).To(Equal(req.UID))
			Expect(out.Response.Allowed).To(BeTrue())
			Expect(out.Response.PatchType).NotTo(BeNil())
			Expect(*out.Response.PatchType).To(Equal(admissionv1.PatchTypeJSONPatch))
			Expect(out.Response.Patch).To(Equal(resp.Patch))
			Expect(out.Response.AuditAnnotations).To(HaveKeyWithValue("mutated", "true"))
			Expect(out.Response.Warnings).To(ConsistOf("defaulted"))
		})

		It("should read requests built with the admission/v1 types", func() {
			in := &admissionv1.AdmissionReview{
				TypeMeta: metav1.TypeMeta{APIVersion: admission.MetaAPIVersionV1, Kind: admission.MetaKind},
				Request: &admissionv1.AdmissionRequest{
					UID:       "abc",
					Kind:      metav1.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"},
					Resource:  metav1.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"},
					Name:      "web",
					Namespace: "default",
					Operation: admissionv1.Delete,
				},
			}
			review, err := admission.FromV1[resource.DynamicObject](in)
			Expect(err).NotTo(HaveOccurred())
			req, err := review.ToRequest()
			Expect(err).NotTo(HaveOccurred())
			Expect(req.UID).To(Equal("abc"))
			Expect(req.Operation).To(Equal(admission.Delete))
			Expect(req.Kind.APIVersion()).To(Equal("apps/v1"))
			Expect(req.Object).To(BeNil())
			Expect(req.Types().APIVersion).To(Equal(admission.MetaAPIVersionV1))
		})

		It("should read v1beta1 reviews", func() {
			in := &admissionv1beta1.AdmissionReview{
				TypeMeta: metav1.TypeMeta{APIVersion: admission.MetaAPIVersionV1beta1, Kind: admission.MetaKind},
				Request: &admissionv1beta1.AdmissionRequest{
					UID:       "legacy",
					Kind:      metav1.GroupVersionKind{Version: "v1", Kind: "ConfigMap"},
					Resource:  metav1.GroupVersionResource{Version: "v1", Resource: "configmaps"},
					Operation: admissionv1beta1.Create,
				},
			}
			review, err := admission.FromV1beta1[resource.DynamicObject](in)
			Expect(err).NotTo(HaveOccurred())
			out := admission.NewResponse(review.Request).IntoReview()
			Expect(out.Response.UID).To(Equal("legacy"))
		})
	})
})
