package types

import "errors"

// Sentinel errors surfaced at the category-7 (configuration) boundary; see
// §7 of the spec. Every other error kind is swallowed and counted at the
// iteration level rather than typed.
var (
	ErrDryRunDisabled = errors.New("dry_run must remain enabled: this system never places real orders")
	ErrNoMapping      = errors.New("cross-venue mode requires at least one resolved market mapping")
)
