package domain

import "context"

// RegionLocator resolves a user's location to a region code such as "TX".
// Both methods return "" with a nil error when nothing matches.
type RegionLocator interface {
	// LocateRegion finds the region containing the coordinates.
	LocateRegion(ctx context.Context, lat, lon float64) (string, error)

	// ResolvePlace finds the region of a place name such as "Austin".
	ResolvePlace(ctx context.Context, place string) (string, error)
}
