package domain

import (
	"time"

	"github.com/google/uuid"
)

// LookupField names the column a deployment can be resolved by.
type LookupField string

const (
	LookupByID        LookupField = "id"
	LookupByName      LookupField = "name"
	LookupBySubdomain LookupField = "subdomain"
)

// ParseLookupField accepts the lookupField query value. An empty value
// defaults to id.
func ParseLookupField(s string) (LookupField, error) {
	switch LookupField(s) {
	case "", LookupByID:
		return LookupByID, nil
	case LookupByName:
		return LookupByName, nil
	case LookupBySubdomain:
		return LookupBySubdomain, nil
	default:
		return "", ErrInvalidLookupField
	}
}

type Deployment struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`

	// Populated by repository, ordered by creation time
	Versions []*Version `json:"versions,omitempty"`
}

// ActiveVersion returns the version flagged active, or nil.
func (d *Deployment) ActiveVersion() *Version {
	for _, v := range d.Versions {
		if v.Active {
			return v
		}
	}
	return nil
}

// VersionLabels lists the version labels in creation order.
func (d *Deployment) VersionLabels() []string {
	labels := make([]string, 0, len(d.Versions))
	for _, v := range d.Versions {
		labels = append(labels, v.Version)
	}
	return labels
}

// HasVersion reports whether the label is already taken on this deployment.
func (d *Deployment) HasVersion(label string) bool {
	for _, v := range d.Versions {
		if v.Version == label {
			return true
		}
	}
	return false
}
