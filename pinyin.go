package lessonplanner

import (
	"errors"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"
)

// Annotator rewrites a text fragment into HTML carrying pronunciation guides
type Annotator interface {
	Annotate(text string) (string, error)
}

// AnnotatorFunc adapts a function to the Annotator interface
type AnnotatorFunc func(text string) (string, error)

func (f AnnotatorFunc) Annotate(text string) (string, error) { return f(text) }

// PinyinAnnotator renders Han characters as <ruby> elements with tone-marked pinyin
type PinyinAnnotator struct {
	args pinyin.Args
}

// NewPinyinAnnotator creates an annotator using tone marks
func NewPinyinAnnotator() *PinyinAnnotator {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	return &PinyinAnnotator{args: args}
}

// Annotate returns HTML where each Han character is <ruby>字<rt>zì</rt></ruby>.
// Runs of other characters are escaped and kept together.
func (p *PinyinAnnotator) Annotate(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", errors.New("text is not valid UTF-8")
	}

	var sb strings.Builder
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			sb.WriteString(html.EscapeString(plain.String()))
			plain.Reset()
		}
	}

	for _, r := range text {
		if !unicode.Is(unicode.Han, r) {
			plain.WriteRune(r)
			continue
		}
		readings := pinyin.SinglePinyin(r, p.args)
		if len(readings) == 0 || readings[0] == "" {
			plain.WriteRune(r)
			continue
		}
		flush()
		sb.WriteString("<ruby>")
		sb.WriteString(html.EscapeString(string(r)))
		sb.WriteString("<rt>")
		sb.WriteString(html.EscapeString(readings[0]))
		sb.WriteString("</rt></ruby>")
	}
	flush()
	return sb.String(), nil
}
