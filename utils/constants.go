package utils

// Lead Source Constants
const (
	SourceWebsite     = "website"
	SourceReferral    = "referral"
	SourceCampaign    = "campaign"
	SourceWalkIn      = "walk_in"
	SourceFacebookAds = "facebook_ads"
	SourceGoogleAds   = "google_ads"
)

// Pagination defaults
const (
	DefaultLimit = 50
	MaxLimit     = 500
)
