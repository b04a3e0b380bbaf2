package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"skypath/pkg/domain"
)

// NetworkFingerprint вычисляет хеш сети рейсов для ключей кэша.
// Порядок добавления рейсов входит в хеш, так как он влияет на tie-break.
func NetworkFingerprint(n *domain.Network) string {
	if n == nil {
		return ""
	}

	h := sha256.New()
	for _, v := range n.Vertices() {
		fmt.Fprintf(h, "v:%s;", v)
	}
	for _, f := range n.Flights() {
		fmt.Fprintf(h, "f:%s:%s:%s:%s:%s;", f.ID, f.Origin, f.Dest,
			strconv.FormatFloat(f.Departure, 'g', -1, 64),
			strconv.FormatFloat(f.Arrival, 'g', -1, 64))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// BuildRouteKey строит ключ кэша маршрута
func BuildRouteKey(fingerprint, source, destination string, start float64) string {
	return fmt.Sprintf("route:%s:%s:%s:%s", fingerprint, source, destination,
		strconv.FormatFloat(start, 'g', -1, 64))
}

// RoutePattern - паттерн всех маршрутов одной сети
func RoutePattern(fingerprint string) string {
	return "route:" + fingerprint + ":*"
}
