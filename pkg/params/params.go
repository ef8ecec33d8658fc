// Package params holds the request parameters for list, create, patch and
// delete calls, their validation, and their query-string and body encodings.
package params

import (
	"fmt"
	"net/url"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/klog/v2"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
	"github.com/dtomasi/kubecore/pkg/patch"
)

const (
	// MaxWatchTimeoutSeconds is the exclusive upper bound for ListParams.Timeout.
	// The API server closes watches at 295s regardless of the requested timeout.
	MaxWatchTimeoutSeconds = 295

	// MaxFieldManagerLength is the longest field manager name the server accepts.
	MaxFieldManagerLength = 128

	dryRunAll = "All"
)

// ListParams configures list and watch calls. Start from DefaultListParams:
// the zero value leaves bookmarks off.
type ListParams struct {
	// LabelSelector restricts results by label, empty for everything.
	LabelSelector string
	// FieldSelector restricts results by field, empty for everything.
	FieldSelector string
	// Timeout for the call in seconds, below MaxWatchTimeoutSeconds.
	Timeout *uint32
	// Bookmarks requests BOOKMARK events on watches.
	Bookmarks bool
	// Limit caps the number of items per page.
	Limit *uint32
	// ContinueToken fetches the next page of a limited list.
	ContinueToken string
}

// DefaultListParams returns ListParams with bookmarks enabled, which every
// supported server version accepts.
func DefaultListParams() ListParams {
	return ListParams{Bookmarks: true}
}

// WithTimeout sets the timeout in seconds.
func (lp ListParams) WithTimeout(seconds uint32) ListParams {
	lp.Timeout = &seconds
	return lp
}

// WithFields sets the field selector.
func (lp ListParams) WithFields(selector string) ListParams {
	lp.FieldSelector = selector
	return lp
}

// WithLabels sets the label selector.
func (lp ListParams) WithLabels(selector string) ListParams {
	lp.LabelSelector = selector
	return lp
}

// WithLimit sets the page size.
func (lp ListParams) WithLimit(limit uint32) ListParams {
	lp.Limit = &limit
	return lp
}

// WithContinueToken sets the continue token of the page to fetch.
func (lp ListParams) WithContinueToken(token string) ListParams {
	lp.ContinueToken = token
	return lp
}

// DisableBookmarks turns off BOOKMARK events.
func (lp ListParams) DisableBookmarks() ListParams {
	lp.Bookmarks = false
	return lp
}

// Validate rejects timeouts the server would cut short.
func (lp ListParams) Validate() error {
	if lp.Timeout != nil && *lp.Timeout >= MaxWatchTimeoutSeconds {
		return kerrors.NewRequestValidation("ListParams.Timeout must be < %ds", MaxWatchTimeoutSeconds)
	}
	return nil
}

// ListOptions converts to the apimachinery list options.
func (lp ListParams) ListOptions() metav1.ListOptions {
	opts := metav1.ListOptions{
		LabelSelector:       lp.LabelSelector,
		FieldSelector:       lp.FieldSelector,
		AllowWatchBookmarks: lp.Bookmarks,
		Continue:            lp.ContinueToken,
	}
	if lp.Timeout != nil {
		timeout := int64(*lp.Timeout)
		opts.TimeoutSeconds = &timeout
	}
	if lp.Limit != nil {
		opts.Limit = int64(*lp.Limit)
	}
	return opts
}

// Query validates and encodes the parameters as a query string.
func (lp ListParams) Query() (url.Values, error) {
	if err := lp.Validate(); err != nil {
		return nil, err
	}
	opts := lp.ListOptions()
	return encode(&opts)
}

// WatchQuery is Query with watch=true and the given resource version to
// resume from.
func (lp ListParams) WatchQuery(resourceVersion string) (url.Values, error) {
	if err := lp.Validate(); err != nil {
		return nil, err
	}
	opts := lp.ListOptions()
	opts.Watch = true
	opts.ResourceVersion = resourceVersion
	return encode(&opts)
}

// PostParams configures create calls.
type PostParams struct {
	// DryRun asks the server to validate without persisting.
	DryRun bool
	// FieldManager names the actor making the change.
	FieldManager string
}

// Validate checks the field manager length. Deeper validation is left to
// the server.
func (pp PostParams) Validate() error {
	return validateFieldManager(pp.FieldManager)
}

// Query validates and encodes the parameters as a query string.
func (pp PostParams) Query() (url.Values, error) {
	if err := pp.Validate(); err != nil {
		return nil, err
	}
	opts := metav1.CreateOptions{FieldManager: pp.FieldManager}
	if pp.DryRun {
		opts.DryRun = []string{dryRunAll}
	}
	return encode(&opts)
}

// PatchParams configures patch calls.
type PatchParams struct {
	// DryRun asks the server to validate without persisting.
	DryRun bool
	// Force takes ownership of conflicting fields. Only meaningful for
	// server-side apply.
	Force bool
	// FieldManager names the actor making the change; required for apply.
	FieldManager string
}

// ApplyParams returns PatchParams for server-side apply as manager.
func ApplyParams(manager string) PatchParams {
	return PatchParams{FieldManager: manager}
}

// WithForce sets Force.
func (pp PatchParams) WithForce() PatchParams {
	pp.Force = true
	return pp
}

// WithDryRun sets DryRun.
func (pp PatchParams) WithDryRun() PatchParams {
	pp.DryRun = true
	return pp
}

// Validate checks the field manager length. Force on a non-apply patch is
// logged as a warning, not rejected.
func (pp PatchParams) Validate(p patch.Patch) error {
	if err := validateFieldManager(pp.FieldManager); err != nil {
		return err
	}
	if pp.Force && (p == nil || !p.IsApply()) {
		klog.Warningf("PatchParams.Force only works with apply patches (fieldManager %q)", pp.FieldManager)
	}
	return nil
}

// Query validates against p and encodes the parameters as a query string.
func (pp PatchParams) Query(p patch.Patch) (url.Values, error) {
	if err := pp.Validate(p); err != nil {
		return nil, err
	}
	opts := metav1.PatchOptions{FieldManager: pp.FieldManager}
	if pp.DryRun {
		opts.DryRun = []string{dryRunAll}
	}
	if pp.Force {
		force := true
		opts.Force = &force
	}
	return encode(&opts)
}

func validateFieldManager(manager string) error {
	if len(manager) > MaxFieldManagerLength {
		return kerrors.NewRequestValidation("field manager must be at most %d characters, got %d", MaxFieldManagerLength, len(manager))
	}
	return nil
}

// encode renders meta/v1 options with the upstream parameter codec so the
// query string matches what the API server decodes.
func encode(obj k8sruntime.Object) (url.Values, error) {
	values, err := metav1.ParameterCodec.EncodeParameters(obj, metav1.SchemeGroupVersion)
	if err != nil {
		return nil, kerrors.NewSerialization(fmt.Sprintf("encode %T as query parameters", obj), err)
	}
	return values, nil
}
