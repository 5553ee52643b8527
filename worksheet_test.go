package lessonplanner

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinyinAnnotator(t *testing.T) {
	p := NewPinyinAnnotator()

	out, err := p.Annotate("你好")
	require.NoError(t, err)
	assert.Equal(t, "<ruby>你<rt>nǐ</rt></ruby><ruby>好<rt>hǎo</rt></ruby>", out)

	out, err = p.Annotate("A<b> & 中")
	require.NoError(t, err)
	assert.Equal(t, "A&lt;b&gt; &amp; <ruby>中<rt>zhōng</rt></ruby>", out)

	_, err = p.Annotate(string([]byte{0xff, 0xfe}))
	assert.Error(t, err)
}

func sampleWorksheet() *ExerciseSchema {
	return &ExerciseSchema{
		Title: "春节练习",
		Exercises: []ExerciseItem{
			{Type: ExerciseTranslation, Question: "Translate: Happy New Year", Answer: "新年快乐"},
			{Type: ExerciseMultipleChoice, Question: "饺子是什么？", Options: []string{"A 食物", "B 动物"}, Answer: "A"},
			{Type: ExerciseTranslation, Question: "Translate: dumpling", Answer: "饺子"},
			{Type: ExerciseFillInBlank, Question: "我___北京人。", Answer: "是"},
		},
	}
}

func TestRenderWorksheet(t *testing.T) {
	cfg := ExerciseConfig{IncludeAnswerKey: true}
	artifact, err := RenderWorksheet(sampleWorksheet(), cfg, "春节练习", nil)
	require.NoError(t, err)

	assert.Equal(t, "春节练习.doc", artifact.Filename)
	assert.Equal(t, WorksheetMimeType, artifact.MimeType)
	assert.True(t, bytes.HasPrefix(artifact.Data, []byte("\ufeff")))

	doc := string(artifact.Data)
	translation := strings.Index(doc, "<h2>四、翻译题 (Translation)</h2>")
	choice := strings.Index(doc, "<h2>一、选择题 (Multiple Choice)</h2>")
	blanks := strings.Index(doc, "<h2>二、填空题 (Fill in the Blanks)</h2>")
	require.True(t, translation > 0 && choice > 0 && blanks > 0)
	assert.Less(t, translation, choice, "groups follow first appearance")
	assert.Less(t, choice, blanks)

	assert.Contains(t, doc, "<strong>2. Translate: dumpling</strong>", "numbering restarts per group")
	assert.Contains(t, doc, "<li>A 食物</li>")
	assert.Contains(t, doc, "<div class=\"answer-key\">")
	assert.Contains(t, doc, "<li>1. 新年快乐</li>")
	assert.NotContains(t, doc, "<ruby>")
}

func TestRenderWorksheetIsDeterministic(t *testing.T) {
	cfg := ExerciseConfig{IncludeAnswerKey: true, IncludePinyin: true}
	a, err := RenderWorksheet(sampleWorksheet(), cfg, "w", nil)
	require.NoError(t, err)
	b, err := RenderWorksheet(sampleWorksheet(), cfg, "w", nil)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestRenderWorksheetWithoutAnswerKey(t *testing.T) {
	artifact, err := RenderWorksheet(sampleWorksheet(), ExerciseConfig{}, "w", nil)
	require.NoError(t, err)
	assert.NotContains(t, string(artifact.Data), "answer-key")
	assert.NotContains(t, string(artifact.Data), "新年快乐")
}

func TestRenderWorksheetEscapes(t *testing.T) {
	schema := &ExerciseSchema{
		Title:     "<script>",
		Exercises: []ExerciseItem{{Type: ExerciseOpenEnded, Question: "1 < 2 & 3 > 2?", Answer: "yes"}},
	}
	artifact, err := RenderWorksheet(schema, ExerciseConfig{}, "a/b:c", nil)
	require.NoError(t, err)

	doc := string(artifact.Data)
	assert.NotContains(t, doc, "<script>")
	assert.Contains(t, doc, "<h1>&lt;script&gt;</h1>")
	assert.Contains(t, doc, "1 &lt; 2 &amp; 3 &gt; 2?")
	assert.Equal(t, "a_b_c.doc", artifact.Filename)
}

func TestRenderWorksheetIsolatesAnnotatorFailures(t *testing.T) {
	annotator := AnnotatorFunc(func(text string) (string, error) {
		switch {
		case strings.Contains(text, "饺子"):
			return "", errors.New("no reading")
		case strings.Contains(text, "北京"):
			panic("annotator bug")
		}
		return "[" + text + "]", nil
	})

	artifact, err := RenderWorksheet(sampleWorksheet(), ExerciseConfig{IncludePinyin: true}, "w", annotator)
	require.NoError(t, err)

	doc := string(artifact.Data)
	assert.Contains(t, doc, "<h1>[春节练习]</h1>")
	assert.Contains(t, doc, "<strong>1. 饺子是什么？</strong>")
	assert.Contains(t, doc, "<strong>1. 我___北京人。</strong>")
	assert.Contains(t, doc, "<li>[A 食物]</li>")
}

func TestRenderWorksheetRequiresSchema(t *testing.T) {
	_, err := RenderWorksheet(nil, ExerciseConfig{}, "w", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
