// Package versionref resolves a form's version choice into exactly one
// unambiguous VersionReference: bind to an existing immutable version of the
// active software product, or declare a brand-new one inline. Every entry
// form shares this one resolver instead of re-implementing the sentinel
// logic per content kind.
package versionref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/swdepot/depot-engine/internal/models"
	"github.com/swdepot/depot-engine/internal/sanitize"
)

// NewVersionSentinel is the reserved selection value meaning "create a new
// version from the typed string".
const NewVersionSentinel = "__new__"

// Validation errors. These are rejected before any network call.
var (
	ErrNoSelection        = errors.New("no version selected")
	ErrEmptyVersionString = errors.New("new version string is empty")
	ErrVersionNotInList   = errors.New("selected version does not belong to the active software product")
	ErrNoActiveSoftware   = errors.New("no software product selected")
	ErrCompatNotEligible  = errors.New("compatibility versions not solicited for this software product")
)

// Eligibility decides which software products solicit the secondary
// compatible-with relation. config.Config satisfies it.
type Eligibility interface {
	CompatibilityEligible(softwareID int) bool
}

// Resolver holds the selected-software to version-list cascade for one form
// session. It is not safe for concurrent use; each form owns its own.
type Resolver struct {
	softwareID int
	versions   []models.Version

	// compatVersions is the version list of the compatibility product,
	// loaded only when the active software is eligible.
	compatVersions []models.Version

	eligibility Eligibility
}

// NewResolver creates a resolver with no active software product.
func NewResolver(eligibility Eligibility) *Resolver {
	return &Resolver{eligibility: eligibility}
}

// SetSoftware switches the active software product and loads its version
// list. Any previously resolved reference is invalidated synchronously:
// after this call the selection is empty and a stale version id from a
// different product can never be submitted.
func (r *Resolver) SetSoftware(softwareID int, versions []models.Version) {
	r.softwareID = softwareID
	r.versions = versions
	r.compatVersions = nil
}

// SoftwareID returns the active software product id (0 when none).
func (r *Resolver) SoftwareID() int {
	return r.softwareID
}

// Versions returns the loaded version list for the active software product.
func (r *Resolver) Versions() []models.Version {
	return r.versions
}

// Resolve turns the raw selection into a VersionReference or fails
// validation. selection is "" (nothing chosen), a version id, or
// NewVersionSentinel; typed is only consulted for the sentinel.
func (r *Resolver) Resolve(selection, typed string) (models.VersionReference, error) {
	if r.softwareID == 0 {
		return models.VersionReference{}, ErrNoActiveSoftware
	}

	selection = strings.TrimSpace(selection)
	if selection == "" {
		return models.VersionReference{}, ErrNoSelection
	}

	if selection == NewVersionSentinel {
		typed = sanitize.Field(typed)
		if typed == "" {
			return models.VersionReference{}, ErrEmptyVersionString
		}
		return models.NewVersionRequest(typed), nil
	}

	id, err := strconv.Atoi(selection)
	if err != nil {
		return models.VersionReference{}, fmt.Errorf("%w: %q", ErrNoSelection, selection)
	}
	if !containsVersion(r.versions, id) {
		return models.VersionReference{}, fmt.Errorf("%w: id %d", ErrVersionNotInList, id)
	}
	return models.ExistingVersion(id), nil
}

// CompatibilityEnabled reports whether the active software product solicits
// the compatible-with relation. When false, the relation is omitted from the
// form entirely and ResolveCompatibility must not be called.
func (r *Resolver) CompatibilityEnabled() bool {
	if r.softwareID == 0 || r.eligibility == nil {
		return false
	}
	return r.eligibility.CompatibilityEligible(r.softwareID)
}

// SetCompatibilityVersions loads the version list of the compatibility
// product the multi-select draws from.
func (r *Resolver) SetCompatibilityVersions(versions []models.Version) {
	r.compatVersions = versions
}

// ResolveCompatibility validates the optional compatible-with multi-select.
// An empty selection is valid; ids must all belong to the loaded
// compatibility version list.
func (r *Resolver) ResolveCompatibility(ids []int) ([]int, error) {
	if !r.CompatibilityEnabled() {
		return nil, ErrCompatNotEligible
	}
	for _, id := range ids {
		if !containsVersion(r.compatVersions, id) {
			return nil, fmt.Errorf("%w: id %d", ErrVersionNotInList, id)
		}
	}
	return ids, nil
}

func containsVersion(versions []models.Version, id int) bool {
	for _, v := range versions {
		if v.ID == id {
			return true
		}
	}
	return false
}
