package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/casaops/backend/internal/storage/models"
)

// Parser parses iCal/ICS calendar feeds into external events.
type Parser struct{}

// NewParser creates a new iCal parser.
func NewParser() *Parser {
	return &Parser{}
}

// rawEvent accumulates the fields of one VEVENT block before validation.
type rawEvent struct {
	uid     string
	summary string
	start   time.Time
	end     time.Time
}

// ParseBytes parses raw feed content. Source is stamped onto every event.
// Malformed events (missing or unparseable dates, end not after start) are
// skipped and counted, never fatal.
func (p *Parser) ParseBytes(body []byte, source string) ([]models.ExternalEvent, int, error) {
	return p.Parse(bytes.NewReader(body), source)
}

// Parse reads and parses iCal data from a reader.
func (p *Parser) Parse(r io.Reader, source string) ([]models.ExternalEvent, int, error) {
	var (
		events         []models.ExternalEvent
		skipped        int
		current        *rawEvent
		currentField   string
		multilineValue strings.Builder
	)

	flushField := func() {
		if currentField != "" && current != nil {
			setEventField(current, currentField, multilineValue.String())
		}
		currentField = ""
		multilineValue.Reset()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Folded lines (leading space or tab) continue the previous field.
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if currentField != "" {
				multilineValue.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, " "), "\t"))
			}
			continue
		}

		flushField()

		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}

		field := line[:colonIdx]
		value := line[colonIdx+1:]

		// Strip property parameters (e.g. DTSTART;VALUE=DATE:20231215).
		if semicolonIdx := strings.Index(field, ";"); semicolonIdx != -1 {
			field = field[:semicolonIdx]
		}

		switch field {
		case "BEGIN":
			if value == "VEVENT" {
				current = &rawEvent{}
			}
		case "END":
			if value == "VEVENT" && current != nil {
				flushField()
				if ev, ok := current.toEvent(source); ok {
					events = append(events, ev)
				} else {
					skipped++
				}
				current = nil
			}
		case "UID", "SUMMARY", "DTSTART", "DTEND":
			if current != nil {
				currentField = field
				multilineValue.WriteString(value)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading calendar: %w", err)
	}

	return events, skipped, nil
}

func setEventField(ev *rawEvent, field, value string) {
	value = unescape(value)

	switch field {
	case "UID":
		ev.uid = value
	case "SUMMARY":
		ev.summary = value
	case "DTSTART":
		ev.start = parseDateTime(value)
	case "DTEND":
		ev.end = parseDateTime(value)
	}
}

// toEvent validates the accumulated fields. Events without a usable date
// range are rejected; a missing UID is not an error, reconciliation falls
// back to checkout-date matching for those sources.
func (e *rawEvent) toEvent(source string) (models.ExternalEvent, bool) {
	if e.start.IsZero() || e.end.IsZero() || !e.end.After(e.start) {
		return models.ExternalEvent{}, false
	}
	return models.ExternalEvent{
		UID:       e.uid,
		Source:    source,
		CheckIn:   e.start,
		CheckOut:  e.end,
		GuestName: e.summary,
	}, true
}

// unescape reverses the common iCal escape sequences.
func unescape(value string) string {
	value = strings.ReplaceAll(value, "\\n", "\n")
	value = strings.ReplaceAll(value, "\\,", ",")
	value = strings.ReplaceAll(value, "\\;", ";")
	value = strings.ReplaceAll(value, "\\\\", "\\")
	return value
}

// parseDateTime parses an iCal date/time value. Date-only values come out
// at midnight UTC, which models.NormalizeDay treats as date-only.
func parseDateTime(value string) time.Time {
	formats := []string{
		"20060102T150405Z",     // UTC datetime
		"20060102T150405",      // Local datetime
		"20060102",             // Date only
		"2006-01-02T15:04:05Z", // ISO 8601 with dashes
		"2006-01-02",           // ISO 8601 date
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	return time.Time{}
}

// FilterFutureEvents returns only events whose checkout hasn't passed.
func FilterFutureEvents(events []models.ExternalEvent, now time.Time) []models.ExternalEvent {
	var future []models.ExternalEvent
	for _, e := range events {
		if e.CheckOut.After(now) {
			future = append(future, e)
		}
	}
	return future
}
