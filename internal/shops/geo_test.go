package shops

import (
	"math"
	"testing"
)

func TestDistanceKM_KnownPoints(t *testing.T) {
	// Bengaluru city center to Whitefield, roughly 15.5km apart
	got := DistanceKM(12.9716, 77.5946, 12.9698, 77.7500)
	if math.Abs(got-16.85) > 1.5 {
		t.Fatalf("distance = %.2f, want ~16.85", got)
	}
}

func TestDistanceKM_SamePoint(t *testing.T) {
	if got := DistanceKM(12.9716, 77.5946, 12.9716, 77.5946); got != 0 {
		t.Fatalf("distance to self = %f, want 0", got)
	}
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	lat, lng, radius := 12.9716, 77.5946, 5.0
	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, radius)

	if minLat >= lat || maxLat <= lat || minLng >= lng || maxLng <= lng {
		t.Fatalf("box does not contain center: [%f %f %f %f]", minLat, maxLat, minLng, maxLng)
	}
	// a point at the radius edge due north must fall inside the box
	edgeLat := lat + radius/111.0
	if edgeLat > maxLat {
		t.Fatalf("northern edge %f outside box max %f", edgeLat, maxLat)
	}
}
