// Package balance fingerprints account balances to detect changes across runs.
package balance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 16

// RawPerUnit is the number of raw quota units in one display unit.
const RawPerUnit = 500000

// QuotaFromRaw converts a raw quota to display units rounded to cents.
// The division and rounding happen on the float64 value, so halves that are
// not exactly representable round the way the stored hashes expect
// (1337500 gives 2.67, not 2.68).
func QuotaFromRaw(raw float64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(raw/RawPerUnit, 'f', 2, 64))
}

// Balance is one account's quota figures in display units.
type Balance struct {
	Quota decimal.Decimal
	Used  decimal.Decimal
}

// Snapshot maps account keys ("account_<n>") to balances.
type Snapshot map[string]Balance

// Fingerprint returns a short hash over the snapshot's quota values.
// Used quota is excluded so that spending alone does not count as a change.
// Keys are sorted before hashing, so insertion order has no effect.
func Fingerprint(s Snapshot) string {
	quotas := make(map[string]json.RawMessage, len(s))
	for key, b := range s {
		quotas[key] = json.RawMessage(formatQuota(b.Quota))
	}

	// encoding/json writes map keys sorted and without whitespace.
	data, err := json.Marshal(quotas)
	if err != nil {
		// Keys are strings and values are valid numbers; not reachable.
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:HashLength]
}

// formatQuota renders a quota the way it has always been hashed: rounded to
// two places, with integral values keeping a ".0" suffix.
func formatQuota(q decimal.Decimal) string {
	s := q.Round(2).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Decision is the outcome of comparing a snapshot with the previous hash.
type Decision struct {
	// Hash is the current fingerprint, empty when the snapshot is empty.
	Hash string
	// Changed is true when the snapshot is non-empty and differs from the
	// previous hash, or when there is no previous hash.
	Changed bool
	// FirstRun is true when a snapshot exists but no previous hash did.
	FirstRun bool
}

// Detect compares the snapshot against the previous hash.
// An empty snapshot never counts as a change.
func Detect(s Snapshot, previous string, hasPrevious bool) Decision {
	if len(s) == 0 {
		return Decision{}
	}

	hash := Fingerprint(s)
	switch {
	case !hasPrevious:
		return Decision{Hash: hash, Changed: true, FirstRun: true}
	case hash != previous:
		return Decision{Hash: hash, Changed: true}
	default:
		return Decision{Hash: hash}
	}
}
