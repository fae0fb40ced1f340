// Package keys derives deterministic cache keys from observations.
package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/emberalert/fire-risk/internal/model"
)

// Namespace prefixes every key this service owns in the backing store, so a
// full clear never touches unrelated keys.
const Namespace = "prediction:"

// Fingerprint hashes the observation's request fields into a cache key. The
// serialization is canonical: fields appear in a fixed order with shortest
// round-trippable float formatting, so two observations with equal values
// always collide regardless of how they were constructed. Temporal features
// are deliberately absent; they are a property of the evaluation instant,
// not the request. xxhash is not collision-resistant against adversarial
// input, which is fine for a performance cache.
func Fingerprint(obs model.Observation) string {
	var b strings.Builder
	b.Grow(128)
	writeField(&b, "humidity", obs.Humidity)
	writeField(&b, "latitude", obs.Latitude)
	writeField(&b, "longitude", obs.Longitude)
	writeField(&b, "pressure", obs.Pressure)
	writeField(&b, "temperature", obs.Temperature)
	writeField(&b, "wind_direction", obs.WindDirection)
	writeField(&b, "wind_speed", obs.WindSpeed)

	return fmt.Sprintf("%s%016x", Namespace, xxhash.Sum64String(b.String()))
}

func writeField(b *strings.Builder, name string, v float64) {
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	b.WriteByte(';')
}
