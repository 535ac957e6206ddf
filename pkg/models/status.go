package models

// LinkKind distinguishes hyperlinks from images
type LinkKind string

const (
	LinkKindAnchor LinkKind = "anchor"
	LinkKindImage  LinkKind = "image"
)

// String implements fmt.Stringer for logging
func (k LinkKind) String() string {
	if k == "" {
		return "unset"
	}
	return string(k)
}

// LinkType is the internal/external classification written to the links report
type LinkType string

const (
	LinkTypeInternal LinkType = "internal"
	LinkTypeExternal LinkType = "external"
)

// String implements fmt.Stringer for logging
func (t LinkType) String() string {
	if t == "" {
		return "unset"
	}
	return string(t)
}

// IsValid returns true if the type is a known classification
func (t LinkType) IsValid() bool {
	switch t {
	case LinkTypeInternal, LinkTypeExternal:
		return true
	}
	return false
}

const (
	FlagOn  = "ON"
	FlagOff = "OFF"
)

// Flag renders a boolean rel flag as ON/OFF.
func Flag(b bool) string {
	if b {
		return FlagOn
	}
	return FlagOff
}

// BrokenLinkRow is one line of the broken-link report.
type BrokenLinkRow struct {
	PostTitle string
	PostURL   string
	LinkURL   string
	Status    string // Numeric status code or the failure marker
}

// LinkRow is one line of the link classification report.
type LinkRow struct {
	PostTitle  string
	PostURL    string
	LinkType   LinkType
	AnchorText string
	LinkURL    string
	NoFollow   bool
	NoReferrer bool
}

// MetaRow is one line of the page metadata report.
type MetaRow struct {
	PostTitle             string
	PostURL               string
	PageTitle             string
	H1                    string
	MetaDescription       string
	MetaDescriptionLength int
	CanonicalURL          string
}
