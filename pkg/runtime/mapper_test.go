package runtime_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/dtomasi/kubecore/pkg/runtime"
)

var _ = Describe("Pluralization", func() {
	DescribeTable("ToPlural",
		func(singular, plural string) {
			Expect(runtime.ToPlural(singular)).To(Equal(plural))
		},
		Entry("regular", "service", "services"),
		Entry("ends in s", "ingress", "ingresses"),
		Entry("ends in x", "box", "boxes"),
		Entry("ends in ch", "batch", "batches"),
		Entry("ends in sh", "mesh", "meshes"),
		Entry("consonant y", "networkpolicy", "networkpolicies"),
		Entry("vowel y", "gateway", "gateways"),
		Entry("already plural", "endpoints", "endpoints"),
		Entry("metrics", "podmetrics", "pods"),
	)

	It("should accept custom mappings", func() {
		helper := runtime.NewPluralizationHelper()
		helper.AddMapping("Person", "People")
		Expect(helper.Pluralize("person")).To(Equal("people"))
	})
})

var _ = Describe("GVKMapper", func() {
	var mapper *runtime.GVKMapper

	BeforeEach(func() {
		mapper = runtime.NewGVKMapper()
	})

	It("should register discovery responses without subresources", func() {
		list := &metav1.APIResourceList{
			GroupVersion: "apps/v1",
			APIResources: []metav1.APIResource{
				{Name: "deployments", Kind: "Deployment"},
				{Name: "deployments/status", Kind: "Deployment"},
				{Name: "statefulsets", Kind: "StatefulSet"},
			},
		}
		Expect(mapper.RegisterAPIResourceList(list)).To(Equal(2))
		Expect(mapper.Len()).To(Equal(2))

		gvr, err := mapper.ResourceFor(runtime.MustGVK("apps", "v1", "Deployment"))
		Expect(err).NotTo(HaveOccurred())
		Expect(gvr.Resource()).To(Equal("deployments"))

		gvk, err := mapper.KindFor(gvr)
		Expect(err).NotTo(HaveOccurred())
		Expect(gvk.Kind()).To(Equal("Deployment"))
		plural, _ := gvk.Plural()
		Expect(plural).To(Equal("deployments"))
	})

	It("should look up kinds by name case-insensitively", func() {
		gvk := runtime.MustGVK("example.com", "v1", "Widget")
		mapper.RegisterMapping(gvk, gvk.ToGVR())
		mapper.RegisterMapping(gvk, gvk.ToGVR())

		kinds := mapper.KindsByName("widget")
		Expect(kinds).To(HaveLen(1))
		Expect(kinds[0].APIVersion()).To(Equal("example.com/v1"))
		Expect(mapper.KindsByName("Gadget")).To(BeNil())
	})

	It("should replace every index when a kind is registered again", func() {
		gvk := runtime.MustGVK("clux.dev", "v1", "Foo")
		oldGVR, err := runtime.NewGVR("clux.dev", "v1", "foos")
		Expect(err).NotTo(HaveOccurred())
		newGVR, err := runtime.NewGVR("clux.dev", "v1", "fooes")
		Expect(err).NotTo(HaveOccurred())

		mapper.RegisterMapping(gvk, oldGVR)
		mapper.RegisterMapping(gvk, newGVR)

		gvr, err := mapper.ResourceFor(gvk)
		Expect(err).NotTo(HaveOccurred())
		Expect(gvr).To(Equal(newGVR))

		kinds := mapper.KindsByName("foo")
		Expect(kinds).To(HaveLen(1))
		plural, ok := kinds[0].Plural()
		Expect(ok).To(BeTrue())
		Expect(plural).To(Equal("fooes"))

		_, err = mapper.KindFor(oldGVR)
		Expect(err).To(HaveOccurred())
		found, err := mapper.KindFor(newGVR)
		Expect(err).NotTo(HaveOccurred())
		Expect(found.Kind()).To(Equal("Foo"))
		Expect(mapper.Len()).To(Equal(1))
	})

	It("should fail unknown lookups and generate a fallback", func() {
		gvk := runtime.MustGVK("example.com", "v1", "Policy")
		_, err := mapper.ResourceFor(gvk)
		Expect(err).To(HaveOccurred())
		Expect(mapper.ResourceOrGenerate(gvk).Resource()).To(Equal("policies"))
	})

	It("should ignore nil lists", func() {
		Expect(mapper.RegisterAPIResourceList(nil)).To(BeZero())
	})
})
