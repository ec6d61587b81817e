package domain

import "time"

// EndpointClass groups routes that share a rate-limit budget.
type EndpointClass string

const (
	ClassAuth          EndpointClass = "auth"
	ClassPasswordReset EndpointClass = "passwordReset"
	ClassUpload        EndpointClass = "upload"
	ClassContact       EndpointClass = "contact"
	ClassGeneral       EndpointClass = "general"
)

// RateLimitRule is the fixed-window budget for one class.
type RateLimitRule struct {
	Max    int
	Window time.Duration
}
