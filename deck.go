package lessonplanner

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
)

// DeckMimeType is the OOXML presentation type
const DeckMimeType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// deckStyle holds the fixed visual parameters of a DeckStyle
type deckStyle struct {
	Background string
	Title      string
	Body       string
	Accent     string
	TitleAlign string // DrawingML paragraph alignment
	TitleRule  bool
}

var deckStyles = map[DeckStyle]deckStyle{
	StyleInkWash:       {Background: "F0E7D8", Title: "2C2C2C", Body: "5C5042", Accent: "6C8C74", TitleAlign: "ctr", TitleRule: true},
	StyleFestiveRed:    {Background: "B93A32", Title: "F0E7D8", Body: "FFFFFF", Accent: "FFD700", TitleAlign: "ctr"},
	StyleMinimalistZen: {Background: "FFFFFF", Title: "2C2C2C", Body: "666666", Accent: "000000", TitleAlign: "l"},
	StyleCustomUpload:  {Background: "FFFFFF", Title: "000000", Body: "000000", Accent: "B93A32", TitleAlign: "ctr"},
}

type deckSlide struct {
	Number          int
	SlideID         int
	Title           string
	Bullets         []string
	Notes           []string
	Style           deckStyle
	BackgroundImage bool
}

type deckDoc struct {
	Title     string
	Author    string
	Slides    []deckSlide
	NoteCount int
}

var deckTemplates = template.Must(parseDeckTemplates())

func parseDeckTemplates() (*template.Template, error) {
	root := template.New("deck").Funcs(template.FuncMap{"xml": xmlText})
	parts := map[string]string{
		"content_types":     contentTypesTmpl,
		"core":              coreTmpl,
		"app":               appTmpl,
		"presentation":      presentationTmpl,
		"presentation_rels": presentationRelsTmpl,
		"slide":             slideTmpl,
		"slide_rels":        slideRelsTmpl,
		"notes":             notesSlideTmpl,
		"notes_rels":        notesSlideRelsTmpl,
	}
	for name, text := range parts {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
	}
	return root, nil
}

func xmlText(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderPart(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := deckTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderDeck packages the slides as a 16:9 presentation named <title>.pptx.
// Rendering is local and deterministic; nothing is returned on failure.
func RenderDeck(slides []SlideContent, cfg DeckConfig) (*Artifact, error) {
	const op = "RenderDeck"
	if len(slides) == 0 {
		return nil, invalidInput(op, "deck has no slides")
	}
	styleName := cfg.Style
	if styleName == "" {
		styleName = StyleInkWash
	}
	style, ok := deckStyles[styleName]
	if !ok {
		return nil, invalidInput(op, "unknown deck style %q", cfg.Style)
	}

	var background []byte
	if styleName == StyleCustomUpload {
		if blank(cfg.CustomBackground) {
			return nil, newError(op, ErrExportFailed, fmt.Errorf("style %s requires a background image", styleName))
		}
		bg, err := NormalizeBackground(cfg.CustomBackground)
		if err != nil {
			return nil, newError(op, ErrExportFailed, err)
		}
		background = bg
	}

	doc := deckDoc{Title: cfg.Title, Author: "Lesson Planner"}
	for i, s := range slides {
		slide := deckSlide{
			Number:          i + 1,
			SlideID:         256 + i,
			Title:           strings.Join(strings.Fields(s.Title), " "),
			Style:           style,
			BackgroundImage: background != nil,
		}
		for _, b := range s.BulletPoints {
			if !blank(b) {
				slide.Bullets = append(slide.Bullets, strings.TrimSpace(b))
			}
		}
		for _, line := range strings.Split(s.SpeakerNotes, "\n") {
			if !blank(line) {
				slide.Notes = append(slide.Notes, strings.TrimSpace(line))
			}
		}
		if len(slide.Notes) > 0 {
			doc.NoteCount++
		}
		doc.Slides = append(doc.Slides, slide)
	}

	data, err := packageDeck(doc, background)
	if err != nil {
		opLog(op).WithError(err).Error("Failed to package deck")
		return nil, newError(op, ErrExportFailed, err)
	}
	opLog(op).Infof("Rendered %d slides (%s)", len(doc.Slides), styleName)

	return &Artifact{
		Filename: sanitizeFilename(cfg.Title, "presentation") + ".pptx",
		MimeType: DeckMimeType,
		Data:     data,
	}, nil
}

func packageDeck(doc deckDoc, background []byte) ([]byte, error) {
	pkg := newZipPackage()

	rendered := func(part, tmpl string, data interface{}) error {
		text, err := renderPart(tmpl, data)
		if err != nil {
			return err
		}
		pkg.addString(part, text)
		return nil
	}

	if err := rendered("[Content_Types].xml", "content_types", doc); err != nil {
		return nil, err
	}
	pkg.addString("_rels/.rels", rootRelsXML)
	if err := rendered("docProps/core.xml", "core", doc); err != nil {
		return nil, err
	}
	if err := rendered("docProps/app.xml", "app", doc); err != nil {
		return nil, err
	}
	if err := rendered("ppt/presentation.xml", "presentation", doc); err != nil {
		return nil, err
	}
	if err := rendered("ppt/_rels/presentation.xml.rels", "presentation_rels", doc); err != nil {
		return nil, err
	}
	pkg.addString("ppt/presProps.xml", presPropsXML)
	pkg.addString("ppt/viewProps.xml", viewPropsXML)
	pkg.addString("ppt/tableStyles.xml", tableStylesXML)
	pkg.addString("ppt/slideMasters/slideMaster1.xml", slideMasterXML)
	pkg.addString("ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML)
	pkg.addString("ppt/slideLayouts/slideLayout1.xml", slideLayoutXML)
	pkg.addString("ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML)
	pkg.addString("ppt/notesMasters/notesMaster1.xml", notesMasterXML)
	pkg.addString("ppt/notesMasters/_rels/notesMaster1.xml.rels", notesMasterRelsXML)
	pkg.addString("ppt/theme/theme1.xml", themeXML)
	pkg.addString("ppt/theme/theme2.xml", themeXML)
	if background != nil {
		pkg.add("ppt/media/background.png", background)
	}

	for _, s := range doc.Slides {
		n := s.Number
		if err := rendered(fmt.Sprintf("ppt/slides/slide%d.xml", n), "slide", s); err != nil {
			return nil, err
		}
		if err := rendered(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), "slide_rels", s); err != nil {
			return nil, err
		}
		if len(s.Notes) == 0 {
			continue
		}
		if err := rendered(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), "notes", s); err != nil {
			return nil, err
		}
		if err := rendered(fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", n), "notes_rels", s); err != nil {
			return nil, err
		}
	}
	return pkg.bytes()
}
