// Package format renders the status line from a small template language and
// decides whether a rendered line is worth emitting again.
//
// Template syntax: literal text interleaved with {field} or {field:filter}
// placeholders. Fields: status, artist, title. Filters: upper, lower,
// capitalize, icon (status only).
package format

import (
	"html"
	"strings"
	"unicode"

	"github.com/undefdev/spotblock/internal/domain"
)

type field int

const (
	fieldStatus field = iota
	fieldArtist
	fieldTitle
)

type filter int

const (
	filterNone filter = iota
	filterUpper
	filterLower
	filterCapitalize
	filterIcon
)

type segment struct {
	literal string
	field   field
	filter  filter
	isField bool
}

// Formatter renders (status, artist, title) through a template compiled once
// at construction. Render is pure; all validation happens in New.
type Formatter struct {
	segments     []segment
	icons        map[string]string
	markupEscape bool
}

// New compiles the template. A placeholder naming an unknown field or filter,
// or applying icon to anything but status, is a ConfigurationError.
// The icons map is expected to carry lowercased keys (see config.Load).
func New(template string, icons map[string]string, markupEscape bool) (*Formatter, error) {
	f := &Formatter{
		icons:        icons,
		markupEscape: markupEscape,
	}
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if rest != "" {
				f.segments = append(f.segments, segment{literal: rest})
			}
			return f, nil
		}
		if open > 0 {
			f.segments = append(f.segments, segment{literal: rest[:open]})
		}
		rest = rest[open+1:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return nil, &domain.ConfigurationError{Reason: "unclosed placeholder in template " + template}
		}
		seg, err := parsePlaceholder(rest[:end])
		if err != nil {
			return nil, err
		}
		f.segments = append(f.segments, seg)
		rest = rest[end+1:]
	}
}

func parsePlaceholder(body string) (segment, error) {
	name, filterName, hasFilter := strings.Cut(body, ":")

	seg := segment{isField: true}
	switch name {
	case "status":
		seg.field = fieldStatus
	case "artist":
		seg.field = fieldArtist
	case "title":
		seg.field = fieldTitle
	default:
		return seg, &domain.ConfigurationError{Reason: "unknown template field " + name}
	}

	if !hasFilter {
		return seg, nil
	}
	switch filterName {
	case "upper":
		seg.filter = filterUpper
	case "lower":
		seg.filter = filterLower
	case "capitalize":
		seg.filter = filterCapitalize
	case "icon":
		if seg.field != fieldStatus {
			return seg, &domain.ConfigurationError{Reason: "icon filter applies to status only, not " + name}
		}
		seg.filter = filterIcon
	default:
		return seg, &domain.ConfigurationError{Reason: "unknown template filter " + filterName}
	}
	return seg, nil
}

// Render produces the status line for one snapshot.
func (f *Formatter) Render(status domain.Status, artist, title string) string {
	var b strings.Builder
	for _, seg := range f.segments {
		if !seg.isField {
			b.WriteString(seg.literal)
			continue
		}
		var value string
		switch seg.field {
		case fieldStatus:
			value = string(status)
		case fieldArtist:
			value = artist
		case fieldTitle:
			value = title
		}
		switch seg.filter {
		case filterNone:
		case filterUpper:
			value = strings.ToUpper(value)
		case filterLower:
			value = strings.ToLower(value)
		case filterCapitalize:
			value = capitalize(value)
		case filterIcon:
			value = f.icon(status)
		}
		if f.markupEscape {
			value = html.EscapeString(value)
		}
		b.WriteString(value)
	}
	return b.String()
}

// icon maps a playback status to its glyph, or "?" for a status the
// configuration does not know.
func (f *Formatter) icon(status domain.Status) string {
	if glyph, ok := f.icons[strings.ToLower(string(status))]; ok {
		return glyph
	}
	return "?"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
