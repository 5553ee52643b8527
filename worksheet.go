package lessonplanner

import (
	"fmt"
	"html"
	"strings"
)

// WorksheetMimeType is the legacy word-processor type the worksheet is served as
const WorksheetMimeType = "application/msword"

var exerciseLabels = map[ExerciseType]string{
	ExerciseMultipleChoice: "一、选择题 (Multiple Choice)",
	ExerciseFillInBlank:    "二、填空题 (Fill in the Blanks)",
	ExerciseMatching:       "三、连线题 (Matching)",
	ExerciseTranslation:    "四、翻译题 (Translation)",
	ExerciseOpenEnded:      "五、问答题 (Open Ended)",
}

func exerciseLabel(t ExerciseType) string {
	if label, ok := exerciseLabels[t]; ok {
		return label
	}
	return "练习题"
}

const worksheetStyle = `<style>
body { font-family: 'SimSun', 'Songti SC', serif; line-height: 2.0; }
h1 { text-align: center; font-size: 24pt; color: #333; margin-bottom: 20px; }
h2 { font-size: 16pt; color: #5e4b35; margin-top: 20px; border-bottom: 1px solid #ccc; padding-bottom: 5px; }
h3 { font-size: 14pt; color: #8b5a2b; margin-top: 15px; }
.question { margin-bottom: 15px; font-size: 12pt; }
.options { margin-left: 20px; list-style-type: none; }
.answer-key { margin-top: 50px; border-top: 2px dashed #999; padding-top: 20px; page-break-before: always; }
ruby { font-size: 12pt; }
rt { font-size: 8pt; color: #666; font-family: Arial, sans-serif; }
</style>`

type exerciseGroup struct {
	Type  ExerciseType
	Items []ExerciseItem
}

// groupExercises groups items by type, keeping the order in which types first appear
func groupExercises(items []ExerciseItem) []exerciseGroup {
	var groups []exerciseGroup
	index := make(map[ExerciseType]int)
	for _, item := range items {
		i, ok := index[item.Type]
		if !ok {
			i = len(groups)
			index[item.Type] = i
			groups = append(groups, exerciseGroup{Type: item.Type})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

type worksheetWriter struct {
	sb        strings.Builder
	pinyin    bool
	annotator Annotator
}

// text escapes a fragment, annotating it first when pinyin is on.
// A failing fragment falls back to its plain text.
func (w *worksheetWriter) text(s string) (out string) {
	escaped := html.EscapeString(s)
	if !w.pinyin || s == "" {
		return escaped
	}
	defer func() {
		if r := recover(); r != nil {
			opLog("RenderWorksheet").Warnf("Pinyin annotation panicked, using plain text: %v", r)
			out = escaped
		}
	}()
	annotated, err := w.annotator.Annotate(s)
	if err != nil {
		opLog("RenderWorksheet").WithError(err).Warn("Pinyin annotation failed, using plain text")
		return escaped
	}
	return annotated
}

func (w *worksheetWriter) write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// RenderWorksheet renders the schema as a Word-compatible HTML document named <filename>.doc.
// The output is identical for identical input.
func RenderWorksheet(schema *ExerciseSchema, cfg ExerciseConfig, filename string, annotator Annotator) (*Artifact, error) {
	const op = "RenderWorksheet"
	if schema == nil {
		return nil, invalidInput(op, "exercise schema is required")
	}
	if annotator == nil {
		annotator = NewPinyinAnnotator()
	}

	w := &worksheetWriter{pinyin: cfg.IncludePinyin, annotator: annotator}
	groups := groupExercises(schema.Exercises)

	w.write("<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>\n")
	w.write("<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n%s\n</head>\n<body>\n", html.EscapeString(schema.Title), worksheetStyle)
	w.write("<h1>%s</h1>\n", w.text(schema.Title))
	w.write("<p style=\"text-align: center;\">%s (Name): _______________ &nbsp;&nbsp; %s (Date): _______________</p>\n", w.text("姓名"), w.text("日期"))

	for _, group := range groups {
		w.write("<h2>%s</h2>\n", w.text(exerciseLabel(group.Type)))
		for i, item := range group.Items {
			w.write("<div class=\"question\">")
			w.write("<strong>%d. %s</strong>", i+1, w.text(item.Question))
			switch {
			case len(item.Options) > 0:
				w.write("<ul class=\"options\">")
				for _, opt := range item.Options {
					w.write("<li>%s</li>", w.text(opt))
				}
				w.write("</ul>")
			case group.Type == ExerciseFillInBlank:
				w.write("<br/>_________________________")
			case group.Type == ExerciseTranslation:
				w.write("<br/>__________________________________________________")
			case group.Type == ExerciseOpenEnded:
				w.write("<br/><br/><br/>")
			}
			w.write("</div>\n")
		}
	}

	if cfg.IncludeAnswerKey {
		w.write("<div class=\"answer-key\"><h2>%s</h2>\n", w.text("参考答案 (Answer Key)"))
		for _, group := range groups {
			w.write("<h3>%s</h3><ul>", w.text(exerciseLabel(group.Type)))
			for i, item := range group.Items {
				w.write("<li>%d. %s</li>", i+1, w.text(item.Answer))
			}
			w.write("</ul>\n")
		}
		w.write("</div>\n")
	}
	w.write("</body></html>\n")

	data := append([]byte("\ufeff"), w.sb.String()...)
	return &Artifact{
		Filename: sanitizeFilename(filename, "worksheet") + ".doc",
		MimeType: WorksheetMimeType,
		Data:     data,
	}, nil
}
