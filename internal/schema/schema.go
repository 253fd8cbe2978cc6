// Package schema names the listing columns the pipeline knows about.
package schema

// Column names as they appear in the NYC listings export.
const (
	ID              = "id"
	Name            = "name"
	HostID          = "host_id"
	HostName        = "host_name"
	Borough         = "neighbourhood_group"
	Neighbourhood   = "neighbourhood"
	Latitude        = "latitude"
	Longitude       = "longitude"
	RoomType        = "room_type"
	Price           = "price"
	MinimumNights   = "minimum_nights"
	NumberOfReviews = "number_of_reviews"
	LastReview      = "last_review"
	ReviewsPerMonth = "reviews_per_month"
	HostListings    = "calculated_host_listings_count"
	Availability365 = "availability_365"
)

// CorrelationColumns is the fixed whitelist used for the correlation matrix.
var CorrelationColumns = []string{
	Price,
	MinimumNights,
	NumberOfReviews,
	HostListings,
	Availability365,
}
