package watch_test

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/labels"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
	"github.com/dtomasi/kubecore/pkg/resource"
	"github.com/dtomasi/kubecore/pkg/watch"
)

const stream = `{"type":"ADDED","object":{"apiVersion":"v1","kind":"Pod","metadata":{"name":"web-1","labels":{"app":"web"},"resourceVersion":"10"}}}
{"type":"MODIFIED","object":{"apiVersion":"v1","kind":"Pod","metadata":{"name":"db-1","labels":{"app":"db"},"resourceVersion":"11"}}}
{"type":"BOOKMARK","object":{"apiVersion":"v1","kind":"Pod","metadata":{"resourceVersion":"12"}}}
{"type":"DELETED","object":{"apiVersion":"v1","kind":"Pod","metadata":{"name":"web-1","labels":{"app":"web"},"resourceVersion":"13"}}}
{"type":"ERROR","object":{"kind":"Status","apiVersion":"v1","status":"Failure","message":"too old resource version: 1 (12)","reason":"Expired","code":410}}
`

var _ = Describe("Event", func() {
	It("should decode object events", func() {
		var ev watch.Event[resource.DynamicObject]
		Expect(json.Unmarshal([]byte(strings.Split(stream, "\n")[0]), &ev)).To(Succeed())
		Expect(ev.Type).To(Equal(watch.EventAdded))
		Expect(ev.HasObject()).To(BeTrue())
		Expect(ev.Object.Name()).To(Equal("web-1"))
		Expect(ev.Bookmark).To(BeNil())
		Expect(ev.String()).To(Equal("Added event"))
	})

	It("should decode the reduced bookmark object", func() {
		var ev watch.Event[resource.DynamicObject]
		Expect(json.Unmarshal([]byte(strings.Split(stream, "\n")[2]), &ev)).To(Succeed())
		Expect(ev.Type).To(Equal(watch.EventBookmark))
		Expect(ev.HasObject()).To(BeFalse())
		Expect(ev.Bookmark).NotTo(BeNil())
		Expect(ev.Bookmark.Metadata.ResourceVersion).To(Equal("12"))
		Expect(ev.Bookmark.Types.Kind).To(Equal("Pod"))
	})

	It("should decode error events into an ErrorResponse", func() {
		var ev watch.Event[resource.DynamicObject]
		Expect(json.Unmarshal([]byte(strings.Split(stream, "\n")[4]), &ev)).To(Succeed())
		Expect(ev.Type).To(Equal(watch.EventError))
		Expect(ev.Error).NotTo(BeNil())
		Expect(ev.Error.Code).To(Equal(int32(410)))
		Expect(ev.Error.Reason).To(Equal("Expired"))
		Expect(ev.String()).To(ContainSubstring("too old resource version"))
	})

	It("should reject unknown event types", func() {
		var ev watch.Event[resource.DynamicObject]
		err := json.Unmarshal([]byte(`{"type":"RESYNC","object":{}}`), &ev)
		Expect(err).To(MatchError(ContainSubstring("unknown watch event type")))
	})

	It("should reject object events without an object", func() {
		for _, input := range []string{`{"type":"ADDED","object":null}`, `{"type":"DELETED"}`} {
			var ev watch.Event[*resource.DynamicObject]
			Expect(json.Unmarshal([]byte(input), &ev)).To(MatchError(ContainSubstring("has no object")))
		}
	})

	It("should not match a selector without an object", func() {
		ev := watch.Event[*resource.DynamicObject]{Type: watch.EventAdded}
		selector := labels.SelectorFromSet(labels.Set{"app": "web"})
		Expect(func() { watch.MatchesLabels(ev, selector) }).NotTo(Panic())
		Expect(watch.MatchesLabels(ev, selector)).To(BeFalse())
		Expect(watch.MatchesLabels(ev, labels.Everything())).To(BeTrue())
	})

	It("should encode the type and object pair", func() {
		ev := watch.Event[resource.DynamicObject]{
			Type:     watch.EventBookmark,
			Bookmark: &watch.Bookmark{Metadata: watch.BookmarkMeta{ResourceVersion: "7"}},
		}
		ev.Bookmark.Types.APIVersion = "v1"
		ev.Bookmark.Types.Kind = "Pod"
		data, err := json.Marshal(ev)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"type":"BOOKMARK","object":{"apiVersion":"v1","kind":"Pod","metadata":{"resourceVersion":"7"}}}`))

		var decoded watch.Event[resource.DynamicObject]
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded.Bookmark).To(Equal(ev.Bookmark))
	})

	It("should encode error events", func() {
		ev := watch.Event[resource.DynamicObject]{
			Type:  watch.EventError,
			Error: &kerrors.ErrorResponse{Status: "Failure", Message: "gone", Reason: "Gone", Code: 410},
		}
		data, err := json.Marshal(ev)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"type":"ERROR","object":{"status":"Failure","message":"gone","reason":"Gone","code":410}}`))
	})
})

var _ = Describe("Decoder", func() {
	It("should read every event and end with EOF", func() {
		dec := watch.NewDecoder[resource.DynamicObject](strings.NewReader(stream))
		var types []watch.EventType
		for {
			ev, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			types = append(types, ev.Type)
		}
		Expect(types).To(Equal([]watch.EventType{
			watch.EventAdded, watch.EventModified, watch.EventBookmark, watch.EventDeleted, watch.EventError,
		}))
	})

	It("should stop the iteration on a malformed event", func() {
		dec := watch.NewDecoder[resource.DynamicObject](strings.NewReader(stream[:strings.Index(stream, "\n")+1] + `{"type":`))
		var errs []error
		count := 0
		for _, err := range dec.Events() {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			count++
		}
		Expect(count).To(Equal(1))
		Expect(errs).To(HaveLen(1))
		Expect(kerrors.IsSerialization(errs[0])).To(BeTrue())
	})

	It("should report a null object as a serialization error", func() {
		dec := watch.NewDecoder[*resource.DynamicObject](strings.NewReader(`{"type":"ADDED","object":null}`))
		_, err := dec.Next()
		Expect(kerrors.IsSerialization(err)).To(BeTrue())
	})

	It("should filter object events by label", func() {
		selector, err := labels.Parse("app=web")
		Expect(err).NotTo(HaveOccurred())

		dec := watch.NewDecoder[*resource.DynamicObject](strings.NewReader(stream))
		var seen []string
		for ev, err := range watch.FilterLabels(dec.Events(), selector) {
			Expect(err).NotTo(HaveOccurred())
			if ev.HasObject() {
				seen = append(seen, string(ev.Type)+":"+ev.Object.Name())
				continue
			}
			seen = append(seen, string(ev.Type))
		}
		Expect(seen).To(Equal([]string{"ADDED:web-1", "BOOKMARK", "DELETED:web-1", "ERROR"}))
	})
})
