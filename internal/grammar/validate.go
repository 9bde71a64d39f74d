package grammar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGrammar wraps every grammar validation failure
	ErrInvalidGrammar = errors.New("invalid grammar")

	// ErrNoIntroducers indicates a grammar with nothing to scan for
	ErrNoIntroducers = errors.New("no introducer keywords")

	// ErrUnknownKind indicates an introducer or refiner mapped to an unknown kind
	ErrUnknownKind = errors.New("unknown declaration kind")

	// ErrInvalidDelimiter indicates an empty or self-closing delimiter pair
	ErrInvalidDelimiter = errors.New("invalid delimiter")

	// ErrConflictingDelimiter indicates the same token used for two roles
	ErrConflictingDelimiter = errors.New("conflicting delimiter")

	// ErrEmptySeparator indicates a generic pair without a separator
	ErrEmptySeparator = errors.New("empty generic separator")
)

// Validate checks that the grammar can drive a scan. A grammar that fails
// validation would produce no useful catalog, so callers fail fast on it.
func Validate(g *Grammar) error {
	if g == nil {
		return fmt.Errorf("%w: grammar is nil", ErrInvalidGrammar)
	}

	var errs []error

	if len(g.Introducers) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one introducer is required", ErrNoIntroducers))
	}
	for kw, kind := range g.Introducers {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, fmt.Errorf("%w: empty introducer keyword", ErrNoIntroducers))
		}
		if !kind.Valid() {
			errs = append(errs, fmt.Errorf("%w: introducer %q maps to %q", ErrUnknownKind, kw, kind))
		}
	}
	for kw, kind := range g.Refiners {
		if !kind.Valid() {
			errs = append(errs, fmt.Errorf("%w: refiner %q maps to %q", ErrUnknownKind, kw, kind))
		}
	}

	if len(g.BodyDelimiters) == 0 && g.IndentBody == "" {
		errs = append(errs, fmt.Errorf("%w: at least one body delimiter pair or an indent body token is required", ErrInvalidDelimiter))
	}

	// Every delimiter token may play exactly one role.
	roles := make(map[string]string)
	claim := func(token, role string) {
		if token == "" {
			return
		}
		if prev, ok := roles[token]; ok && prev != role {
			errs = append(errs, fmt.Errorf("%w: %q used as both %s and %s", ErrConflictingDelimiter, token, prev, role))
			return
		}
		roles[token] = role
	}

	checkPair := func(p Pair, role string) {
		if p.Open == "" || p.Close == "" {
			errs = append(errs, fmt.Errorf("%w: %s pair %q/%q must have both sides", ErrInvalidDelimiter, role, p.Open, p.Close))
			return
		}
		if p.Open == p.Close {
			errs = append(errs, fmt.Errorf("%w: %s pair opens and closes with %q", ErrInvalidDelimiter, role, p.Open))
			return
		}
		claim(p.Open, role+" open")
		claim(p.Close, role+" close")
	}

	for _, p := range g.BodyDelimiters {
		checkPair(p, "body")
	}
	for _, p := range g.GroupDelimiters {
		checkPair(p, "group")
	}
	if !g.Generic.IsZero() {
		checkPair(g.Generic, "generic")
		if g.GenericSeparator == "" {
			errs = append(errs, fmt.Errorf("%w: generic pair %q/%q has no separator", ErrEmptySeparator, g.Generic.Open, g.Generic.Close))
		}
	}
	claim(g.GenericSeparator, "generic separator")
	claim(g.Terminator, "terminator")
	claim(g.IndentBody, "indent body")
	claim(g.TypeAnnotation, "type annotation")

	if !g.BlockComment.IsZero() && (g.BlockComment.Open == "" || g.BlockComment.Close == "") {
		errs = append(errs, fmt.Errorf("%w: block comment pair must have both sides", ErrInvalidDelimiter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidGrammar, g.Name, joinErrors(errs))
	}

	return nil
}

// validationErrors keeps every individual failure reachable through
// errors.Is while printing as one readable list.
type validationErrors []error

func (e validationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e validationErrors) Unwrap() []error { return e }

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return validationErrors(errs)
}
