// Package geo holds the distance predicate used by alert matching and the geohash cells
// used to prefilter catalog queries.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	EarthRadiusKm = 6371.0088
	kmPerDegree   = 111.32

	// HashPrecision is the length stored on catalog rows.
	HashPrecision = 9
)

// DistanceKm returns the haversine distance between two points in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Within reports whether the point lies inside the circle, boundary included.
func Within(centerLat, centerLon, radiusKm, lat, lon float64) bool {
	return DistanceKm(centerLat, centerLon, lat, lon) <= radiusKm
}

// Encode returns the geohash stored alongside catalog rows.
func Encode(lat, lon float64) string {
	return geohash.EncodeWithPrecision(lat, lon, HashPrecision)
}

// CoveringCells returns geohash prefixes whose union contains every point within radiusKm of
// the center: the center cell plus its eight neighbors, at the finest precision whose cell is
// at least radiusKm tall and wide. It returns nil when no precision is coarse enough, in which
// case callers must not prefilter.
func CoveringCells(lat, lon, radiusKm float64) []string {
	if radiusKm <= 0 {
		return nil
	}
	for chars := HashPrecision; chars >= 1; chars-- {
		hash := geohash.EncodeWithPrecision(lat, lon, uint(chars))
		box := geohash.BoundingBox(hash)
		heightKm := (box.MaxLat - box.MinLat) * kmPerDegree
		widthKm := (box.MaxLng - box.MinLng) * kmPerDegree * math.Cos(maxAbsLat(box)*math.Pi/180)
		if heightKm >= radiusKm && widthKm >= radiusKm {
			cells := append([]string{hash}, geohash.Neighbors(hash)...)
			return dedupe(cells)
		}
	}
	return nil
}

func maxAbsLat(box geohash.Box) float64 {
	return math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
}

func dedupe(cells []string) []string {
	seen := make(map[string]struct{}, len(cells))
	out := cells[:0]
	for _, cell := range cells {
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		out = append(out, cell)
	}
	return out
}
