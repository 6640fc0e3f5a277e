// Package encoding holds the wire encodings used inside Static API paths:
// polyline compression and percent-encoding.
package encoding

import (
	"errors"
	"math"

	"github.com/mohammed-shakir/static-snapshot/internal/core/model"
)

// PolylinePrecision is the fixed 1e5 factor of the polyline algorithm.
const PolylinePrecision = 1e5

// EncodePolyline encodes coordinates with the Google polyline algorithm:
// the first point absolute, every later point as a delta from the previous
// one, latitude before longitude.
func EncodePolyline(coords []model.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(coords)*8)
	buf = appendValue(buf, coords[0].Lat)
	buf = appendValue(buf, coords[0].Lon)
	for i := 1; i < len(coords); i++ {
		buf = appendValue(buf, coords[i].Lat-coords[i-1].Lat)
		buf = appendValue(buf, coords[i].Lon-coords[i-1].Lon)
	}
	return string(buf)
}

// appendValue encodes one scalar in degrees. The delta is rounded as a
// float, not as a difference of rounded integers.
func appendValue(buf []byte, v float64) []byte {
	n := int64(math.Round(v*PolylinePrecision)) << 1
	if n < 0 {
		n = ^n
	}
	for n >= 0x20 {
		buf = append(buf, byte((0x20|(n&0x1f))+63))
		n >>= 5
	}
	return append(buf, byte(n+63))
}

var errTruncated = errors.New("polyline: truncated input")

// DecodePolyline reverses EncodePolyline. Values come back rounded to 1e-5.
func DecodePolyline(s string) ([]model.Coordinate, error) {
	var (
		out      []model.Coordinate
		lat, lon int64
	)
	for i := 0; i < len(s); {
		dLat, next, err := readValue(s, i)
		if err != nil {
			return nil, err
		}
		dLon, next, err := readValue(s, next)
		if err != nil {
			return nil, err
		}
		i = next
		lat += dLat
		lon += dLon
		out = append(out, model.Coordinate{
			Lat: float64(lat) / PolylinePrecision,
			Lon: float64(lon) / PolylinePrecision,
		})
	}
	return out, nil
}

func readValue(s string, i int) (int64, int, error) {
	var result int64
	shift := uint(0)
	for {
		if i >= len(s) {
			return 0, i, errTruncated
		}
		b := int64(s[i]) - 63
		i++
		if b < 0 || b > 0x3f {
			return 0, i, errors.New("polyline: invalid character")
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
