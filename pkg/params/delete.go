package params

import (
	"encoding/json"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// PropagationPolicy controls how dependents are garbage collected.
type PropagationPolicy string

const (
	// Orphan leaves dependents in place.
	Orphan PropagationPolicy = "Orphan"
	// Background deletes the owner immediately and dependents afterwards.
	Background PropagationPolicy = "Background"
	// Foreground deletes dependents before the owner.
	Foreground PropagationPolicy = "Foreground"
)

// Preconditions must hold for a delete to proceed.
type Preconditions struct {
	ResourceVersion *string
	UID             *string
}

// DeleteParams configures delete calls. Unlike the other parameters they are
// sent as the request body.
type DeleteParams struct {
	// DryRun asks the server to validate without persisting.
	DryRun bool
	// GracePeriodSeconds overrides the object's termination grace period.
	GracePeriodSeconds *uint32
	// PropagationPolicy selects garbage collection behaviour.
	PropagationPolicy *PropagationPolicy
	// Preconditions must match the stored object.
	Preconditions *Preconditions
}

// BackgroundDelete returns DeleteParams with background propagation.
func BackgroundDelete() DeleteParams {
	return withPolicy(Background)
}

// ForegroundDelete returns DeleteParams with foreground propagation.
func ForegroundDelete() DeleteParams {
	return withPolicy(Foreground)
}

// OrphanDelete returns DeleteParams that orphan dependents.
func OrphanDelete() DeleteParams {
	return withPolicy(Orphan)
}

func withPolicy(policy PropagationPolicy) DeleteParams {
	return DeleteParams{PropagationPolicy: &policy}
}

// WithGracePeriod sets the grace period in seconds.
func (dp DeleteParams) WithGracePeriod(seconds uint32) DeleteParams {
	dp.GracePeriodSeconds = &seconds
	return dp
}

// WithDryRun sets DryRun.
func (dp DeleteParams) WithDryRun() DeleteParams {
	dp.DryRun = true
	return dp
}

// DeleteOptions converts to the apimachinery delete options.
//
// In the body dryRun is either absent or ["All"]; the boolean form only
// exists in query strings.
func (dp DeleteParams) DeleteOptions() metav1.DeleteOptions {
	var opts metav1.DeleteOptions
	if dp.DryRun {
		opts.DryRun = []string{dryRunAll}
	}
	if dp.GracePeriodSeconds != nil {
		grace := int64(*dp.GracePeriodSeconds)
		opts.GracePeriodSeconds = &grace
	}
	if dp.PropagationPolicy != nil {
		policy := metav1.DeletionPropagation(*dp.PropagationPolicy)
		opts.PropagationPolicy = &policy
	}
	if dp.Preconditions != nil {
		opts.Preconditions = &metav1.Preconditions{ResourceVersion: dp.Preconditions.ResourceVersion}
		if dp.Preconditions.UID != nil {
			uid := types.UID(*dp.Preconditions.UID)
			opts.Preconditions.UID = &uid
		}
	}
	return opts
}

// MarshalJSON encodes the request body.
func (dp DeleteParams) MarshalJSON() ([]byte, error) {
	return json.Marshal(dp.DeleteOptions())
}
