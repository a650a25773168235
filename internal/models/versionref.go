package models

import (
	"encoding/json"
	"errors"
	"strconv"
)

// VersionReference is the tagged union a form submits to bind an item to a
// version: either an existing immutable version of the active software
// product, or a request to create a brand-new version inline. Exactly one
// variant is populated; the zero value is neither and is invalid.
type VersionReference struct {
	versionID  int
	newVersion string
}

// ErrEmptyVersionReference is returned when a zero VersionReference is
// serialized or applied.
var ErrEmptyVersionReference = errors.New("version reference is empty")

// ExistingVersion references a version already known to the server.
func ExistingVersion(versionID int) VersionReference {
	return VersionReference{versionID: versionID}
}

// NewVersionRequest asks the server to create the typed version inline.
// The typed string must be non-empty; the resolver enforces that before a
// reference is ever constructed.
func NewVersionRequest(typed string) VersionReference {
	return VersionReference{newVersion: typed}
}

// IsZero reports whether neither variant is populated.
func (r VersionReference) IsZero() bool {
	return r.versionID == 0 && r.newVersion == ""
}

// IsNew reports whether the reference requests inline version creation.
func (r VersionReference) IsNew() bool {
	return r.newVersion != ""
}

// VersionID returns the referenced version id and whether the existing
// variant is populated.
func (r VersionReference) VersionID() (int, bool) {
	return r.versionID, r.versionID != 0
}

// TypedVersionString returns the inline version string and whether the new
// variant is populated.
func (r VersionReference) TypedVersionString() (string, bool) {
	return r.newVersion, r.newVersion != ""
}

// Fields writes the reference into a flat field map the way the portal's
// create/edit endpoints expect it: exactly one of versionId or
// typedVersionString.
func (r VersionReference) Fields(dst map[string]string) error {
	if r.IsZero() {
		return ErrEmptyVersionReference
	}
	if r.IsNew() {
		dst["typedVersionString"] = r.newVersion
		return nil
	}
	dst["versionId"] = strconv.Itoa(r.versionID)
	return nil
}

// MarshalJSON emits exactly one of the two variant fields.
func (r VersionReference) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return nil, ErrEmptyVersionReference
	}
	if r.IsNew() {
		return json.Marshal(struct {
			TypedVersionString string `json:"typedVersionString"`
		}{r.newVersion})
	}
	return json.Marshal(struct {
		VersionID int `json:"versionId"`
	}{r.versionID})
}
