package justwatch

// Monetization types reported by the catalog.
const (
	MonetizationFlatrate    = "FLATRATE"
	MonetizationFree        = "FREE"
	MonetizationAds         = "ADS"
	MonetizationRent        = "RENT"
	MonetizationBuy         = "BUY"
	MonetizationCinema      = "CINEMA"
	MonetizationFastChannel = "FAST"
)

// ObjectTypeMovie marks feature films; shows and seasons use other values.
const ObjectTypeMovie = "MOVIE"

// Offer is one way to watch a candidate in the queried country.
type Offer struct {
	ServiceName      string
	TechnicalName    string
	MonetizationType string
	ProviderChannel  string // reselling platform, when the catalog reports one
}

// Candidate is a single catalog search hit.
type Candidate struct {
	EntryID     string
	ObjectType  string
	Title       string
	ReleaseYear int // 0 when the catalog has no year
	Offers      []Offer
}

// IsMovie reports whether the candidate is a film. Candidates without an
// object type are treated as films.
func (c Candidate) IsMovie() bool {
	return c.ObjectType == "" || c.ObjectType == ObjectTypeMovie
}
