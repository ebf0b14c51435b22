package datemath

import (
	"fmt"
	"strings"
	"time"
)

// Date tokens the assistant may emit instead of an explicit date.
const (
	TokenToday    = "TODAY"
	TokenTomorrow = "TOMORROW"
)

// Parser resolves relative date tokens against a wall clock in a fixed timezone.
type Parser struct {
	location *time.Location
}

// NewParser creates a parser for the given IANA timezone string.
// "Local" and "" select the process's local zone.
func NewParser(timezone string) (*Parser, error) {
	if timezone == "" || strings.EqualFold(timezone, "local") {
		return &Parser{location: time.Local}, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Parser{location: loc}, nil
}

// Location returns the parser's timezone.
func (p *Parser) Location() *time.Location {
	return p.location
}

// Today returns now's calendar day as seen in the parser's timezone.
func (p *Parser) Today(now time.Time) time.Time {
	return Normalize(now.In(p.location))
}

// Parse reads an explicit YYYY-MM-DD date.
func (p *Parser) Parse(s string) (time.Time, error) {
	return ParseISODate(s)
}

// ResolveToken turns a date token into the YYYY-MM-DD string stored on a task.
// It must be called when the task is created so TOMORROW is relative to now.
// Explicit dates are returned normalized; anything unparseable is rejected.
func (p *Parser) ResolveToken(token string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(token)
	switch strings.ToUpper(trimmed) {
	case "", TokenToday:
		return FormatISODate(p.Today(now)), nil
	case TokenTomorrow:
		return FormatISODate(AddDays(p.Today(now), 1)), nil
	}

	d, err := p.Parse(trimmed)
	if err != nil {
		return "", err
	}
	return FormatISODate(d), nil
}
