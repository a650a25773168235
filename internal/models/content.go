// Package models defines the data types exchanged between the Depot engine
// and the portal API: content items, software/version catalogs, bulk
// operation results, and favorite state.
package models

import "fmt"

// ItemKind discriminates the content kinds the portal manages.
type ItemKind string

const (
	KindDocument ItemKind = "document"
	KindPatch    ItemKind = "patch"
	KindLink     ItemKind = "link"
	KindMiscFile ItemKind = "miscFile"
)

// Valid reports whether k is one of the known content kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case KindDocument, KindPatch, KindLink, KindMiscFile:
		return true
	}
	return false
}

// Path returns the URL path segment for the kind ("documents", "patches", ...).
func (k ItemKind) Path() string {
	switch k {
	case KindDocument:
		return "documents"
	case KindPatch:
		return "patches"
	case KindLink:
		return "links"
	case KindMiscFile:
		return "misc-files"
	}
	return string(k)
}

// ContentItem is a read-only handle to a published item. The engine never
// mutates items directly; every mutation is a round trip through the server,
// keyed by (ID, Kind).
type ContentItem struct {
	ID             int      `json:"id"`
	Kind           ItemKind `json:"kind"`
	DisplayName    string   `json:"displayName"`
	IsExternalLink bool     `json:"isExternalLink"`
	IsDownloadable bool     `json:"isDownloadable"`
}

// Downloadable reports whether the item can be part of a bulk download.
// External links and items flagged non-downloadable are excluded client-side
// before any request is issued.
func (c ContentItem) Downloadable() bool {
	return !c.IsExternalLink && c.IsDownloadable
}

// Software is one entry of the software catalog.
type Software struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Version is one immutable version of a software product.
type Version struct {
	ID            int    `json:"id"`
	VersionNumber string `json:"versionNumber"`
}

func (v Version) String() string {
	return fmt.Sprintf("%s (#%d)", v.VersionNumber, v.ID)
}
