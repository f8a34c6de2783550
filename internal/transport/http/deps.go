package http

import "github.com/go-docverify/internal/application/verification"

// Deps holds the application services the router exposes.
type Deps struct {
	Verification verification.Service
}
