package notion

import (
	"time"

	"github.com/jomei/notionapi"
)

// MaxTextLen is the per-block rich text limit enforced by the API.
const MaxTextLen = 2000

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > MaxTextLen {
		s = string(r[:MaxTextLen])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// TitleProp builds a title property.
func TitleProp(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: richText(s)}
}

// TextProp builds a rich_text property, truncated to MaxTextLen runes.
func TextProp(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: richText(s)}
}

// URLProp builds a url property.
func URLProp(s string) notionapi.URLProperty {
	return notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: s}
}

// NumberProp builds a number property.
func NumberProp(n float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: n}
}

// SelectProp builds a select property.
func SelectProp(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: name}}
}

// StatusProp builds a status property.
func StatusProp(name string) notionapi.StatusProperty {
	return notionapi.StatusProperty{Type: notionapi.PropertyTypeStatus, Status: notionapi.Status{Name: name}}
}

// CheckboxProp builds a checkbox property.
func CheckboxProp(b bool) notionapi.CheckboxProperty {
	return notionapi.CheckboxProperty{Type: notionapi.PropertyTypeCheckbox, Checkbox: b}
}

// DateProp builds a date property starting at t.
func DateProp(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &d},
	}
}

// PlainText concatenates rich text segments, preferring the server-rendered
// plain text over the raw content.
func PlainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		switch {
		case rt.PlainText != "":
			s += rt.PlainText
		case rt.Text != nil:
			s += rt.Text.Content
		}
	}
	return s
}

// ReadText returns the string form of a title, rich_text, url, select or
// status property. Missing or other property types yield "".
func ReadText(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		return PlainText(p.Title)
	case notionapi.TitleProperty:
		return PlainText(p.Title)
	case *notionapi.RichTextProperty:
		return PlainText(p.RichText)
	case notionapi.RichTextProperty:
		return PlainText(p.RichText)
	case *notionapi.URLProperty:
		return p.URL
	case notionapi.URLProperty:
		return p.URL
	case *notionapi.SelectProperty:
		return p.Select.Name
	case notionapi.SelectProperty:
		return p.Select.Name
	case *notionapi.StatusProperty:
		return p.Status.Name
	case notionapi.StatusProperty:
		return p.Status.Name
	}
	return ""
}

// ReadNumber returns a number property's value, or 0.
func ReadNumber(props notionapi.Properties, name string) float64 {
	switch p := props[name].(type) {
	case *notionapi.NumberProperty:
		return p.Number
	case notionapi.NumberProperty:
		return p.Number
	}
	return 0
}

// ReadCheckbox returns a checkbox property's value, or false.
func ReadCheckbox(props notionapi.Properties, name string) bool {
	switch p := props[name].(type) {
	case *notionapi.CheckboxProperty:
		return p.Checkbox
	case notionapi.CheckboxProperty:
		return p.Checkbox
	}
	return false
}

// ReadDate returns a date property's start, or the zero time.
func ReadDate(props notionapi.Properties, name string) time.Time {
	var d *notionapi.DateObject
	switch p := props[name].(type) {
	case *notionapi.DateProperty:
		d = p.Date
	case notionapi.DateProperty:
		d = p.Date
	}
	if d == nil || d.Start == nil {
		return time.Time{}
	}
	return time.Time(*d.Start)
}
