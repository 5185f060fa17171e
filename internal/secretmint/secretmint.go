// Package secretmint deterministically generates the per-service secrets
// referenced by service templates as ${SERVICE_LOGICAL} placeholders. Given
// the same site seed, the same (service, logical-name) pair always mints
// the same value, which is what lets `apply` produce byte-identical .env
// files across runs.
package secretmint

import (
	"math/rand"
	"strings"
)

// alphabet is fixed so every minted secret is a valid shell-quoted string
// when emitted as NAME="...." in .env (no quote or backslash characters).
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789)(*&^%#@!~"

const defaultLength = 10

// Store is the narrow interface secretmint needs from the local store: a
// place to record the canonical-name -> value mapping it produces.
type Store interface {
	PutSecret(canonical, value string)
}

// Mint draws deterministic secrets seeded by a single site-wide seed.
type Mint struct {
	siteSeed uint32
	store    Store
}

// New returns a Mint keyed by siteSeed, writing every minted secret into
// store.
func New(siteSeed uint32, store Store) *Mint {
	return &Mint{siteSeed: siteSeed, store: store}
}

// Placeholder mints (or recalls) the secret for (service, logical) and
// returns the ${CANONICAL} placeholder to embed in a template. Every call
// recomputes the value and writes it to the store again; since the value
// depends only on the seed and the pair, a repeated call stores the same
// value and returns the same placeholder.
func (m *Mint) Placeholder(service, logical string) string {
	return m.PlaceholderN(service, logical, defaultLength)
}

// PlaceholderN is Placeholder with an explicit secret length.
func (m *Mint) PlaceholderN(service, logical string, n int) string {
	canonical := Canonicalize(service, logical)
	value := m.value(canonical, n)
	m.store.PutSecret(canonical, value)
	return "${" + canonical + "}"
}

// Generate mints a deterministic raw value for (service, logical) without
// recording it in the local store's secrets map. Used for values that are
// persisted some other way (e.g. a basic-auth password, which the caller
// bcrypt-hashes and stores as a BasicAuthUser) rather than emitted into
// .env as a ${CANONICAL} placeholder.
func (m *Mint) Generate(service, logical string) string {
	return m.value(Canonicalize(service, logical), defaultLength)
}

// Canonicalize maps a (service, logical) pair to the SERVICE_LOGICAL form
// used both as the .env key and as the seed-folding input.
func Canonicalize(service, logical string) string {
	joined := service + "_" + logical
	joined = strings.ReplaceAll(joined, "-", "_")
	return strings.ToUpper(joined)
}

func (m *Mint) value(canonical string, n int) string {
	salt := fold(canonical)
	src := rand.New(rand.NewSource(int64(uint64(m.siteSeed) ^ salt)))
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[src.Intn(len(alphabet))]
	}
	return string(out)
}

// fold computes a 64-bit salt from the canonical name: a = a*31 + byte,
// folded over every byte of the name.
func fold(canonical string) uint64 {
	var a uint64
	for i := 0; i < len(canonical); i++ {
		a = a*31 + uint64(canonical[i])
	}
	return a
}
