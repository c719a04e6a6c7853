package entities

const ATCNotFound = "ATC code not found"

// ATCSource records which step of the resolution chain produced the codes.
type ATCSource string

const (
	ATCSourceDirectPage  ATCSource = "direct_page"
	ATCSourceListingPage ATCSource = "listing_page"
	ATCSourceFallback    ATCSource = "fallback_table"
	ATCSourceNone        ATCSource = "none"
)

// ATCResolution holds the comma-joined ATC codes for a substance,
// or ATCNotFound.
type ATCResolution struct {
	Substance string
	Codes     string
	Source    ATCSource
}

func (r ATCResolution) Found() bool {
	return r.Codes != "" && r.Codes != ATCNotFound
}
