package config

import "git.home.luguber.info/inful/ezvcpkg/internal/foundation/normalization"

// LockVariant selects the cross-process locking strategy.
type LockVariant string

const (
	// LockVariantAuto uses flock where the platform supports it.
	LockVariantAuto LockVariant = "auto"
	// LockVariantFlock holds an advisory flock on an exclusively created file.
	LockVariantFlock LockVariant = "flock"
	// LockVariantExclusiveCreate relies on O_EXCL creation alone. Weaker: a stale
	// file is unlinked before every attempt.
	LockVariantExclusiveCreate LockVariant = "exclusive-create"
)

var lockVariantNormalizer = normalization.NewNormalizer(map[string]LockVariant{
	"auto":             LockVariantAuto,
	"flock":            LockVariantFlock,
	"exclusive-create": LockVariantExclusiveCreate,
	"exclusive_create": LockVariantExclusiveCreate,
	"excl":             LockVariantExclusiveCreate,
}, LockVariantAuto)

// NormalizeLockVariant maps user input onto a LockVariant, defaulting to auto.
func NormalizeLockVariant(raw string) LockVariant {
	return lockVariantNormalizer.Normalize(raw)
}
