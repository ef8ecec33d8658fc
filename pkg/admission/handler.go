package admission

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// Func decides on a single admission request. Returning nil admits it.
type Func[K any] func(ctx context.Context, req *AdmissionRequest[K]) *AdmissionResponse

// HandlerOption configures a Handler.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	logger logr.Logger
}

// WithLogger sets the logger used by the handler.
func WithLogger(logger logr.Logger) HandlerOption {
	return func(o *handlerOptions) {
		o.logger = logger
	}
}

// Handler runs complete admission exchanges. It holds no per-request state
// and is safe for concurrent use.
type Handler[K any] struct {
	fn     Func[K]
	logger logr.Logger
}

// NewHandler returns a Handler deciding with fn.
func NewHandler[K any](fn Func[K], opts ...HandlerOption) *Handler[K] {
	options := &handlerOptions{
		logger: klog.Background().WithName("admission"),
	}
	for _, opt := range opts {
		opt(options)
	}
	return &Handler[K]{fn: fn, logger: options.logger}
}

// Review decodes an AdmissionReview from body, decides on it and returns the
// encoded response review.
//
// Bodies that cannot be decoded or carry no request are answered with an
// Invalid response instead of an error, so the API server always receives a
// well-formed review. The returned error is only set when the response
// itself cannot be encoded.
func (h *Handler[K]) Review(ctx context.Context, body []byte) ([]byte, error) {
	resp := h.decide(ctx, body)
	data, err := json.Marshal(resp.IntoReview())
	if err != nil {
		return nil, kerrors.NewSerialization("encode admission review", err)
	}
	return data, nil
}

func (h *Handler[K]) decide(ctx context.Context, body []byte) *AdmissionResponse {
	var review AdmissionReview[K]
	if err := json.Unmarshal(body, &review); err != nil {
		h.logger.Error(err, "Failed to decode admission review")
		return Invalid(err.Error())
	}
	req, err := review.ToRequest()
	if err != nil {
		h.logger.Error(err, "Received admission review without request", "apiVersion", review.APIVersion)
		return Invalid(err.Error())
	}

	logger := h.logger.WithValues("uid", req.UID, "kind", req.Kind.String(), "operation", req.Operation)
	resp := h.fn(klog.NewContext(ctx, logger), req)
	if resp == nil {
		resp = NewResponse(req)
	}
	// The server correlates on uid and envelope version.
	resp.UID = req.UID
	resp.types = req.types

	logger.V(4).Info("Admission decided", "allowed", resp.Allowed, "patched", len(resp.Patch) > 0)
	return resp
}
