package textrecord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/studyhub-api/internal/models"
)

const (
	labelTitle         = "제목: "
	labelDescription   = "설명: "
	labelAnswer        = "정답: "
	labelExplanation   = "해설: "
	markerPassage      = "=== 지문 ==="
	questionMarkerHead = "=== 문제"
	markerTail         = "==="
)

// OptionGlyphs prefixes the options of a question, in order.
var OptionGlyphs = []string{"①", "②", "③", "④", "⑤"}

// mockTestReserved lists the line prefixes that passage and question text must not start with.
var mockTestReserved = append([]string{"=", labelTitle, labelDescription, labelAnswer, labelExplanation}, OptionGlyphs...)

// QuestionMarker renders the section header for the n-th question.
func QuestionMarker(n int) string {
	return fmt.Sprintf("=== 문제 %d번 ===", n)
}

// EncodeMockTest renders a test. Questions are numbered by position and at most five options
// are written per question. Labelled fields are flattened to one line and passage or question
// lines that look like structure are escaped with a backslash.
func EncodeMockTest(test models.MockTest) []byte {
	var b strings.Builder

	b.WriteString(labelTitle + singleLine(test.Title) + "\n")
	b.WriteString(labelDescription + singleLine(test.Description) + "\n")
	b.WriteString("\n" + markerPassage + "\n")
	b.WriteString(escapeBody(test.Passage, mockTestReserved) + "\n")

	for i, q := range test.Questions {
		b.WriteString("\n" + QuestionMarker(i+1) + "\n")
		b.WriteString(escapeBody(q.Content, mockTestReserved) + "\n")
		for j, option := range q.Options {
			if j >= len(OptionGlyphs) {
				break
			}
			b.WriteString(OptionGlyphs[j] + " " + singleLine(option) + "\n")
		}
		b.WriteString(labelAnswer + strconv.Itoa(q.CorrectAnswer) + "\n")
		if q.Explanation != "" {
			b.WriteString(labelExplanation + singleLine(q.Explanation) + "\n")
		}
	}

	return []byte(b.String())
}

type section int

const (
	sectionNone section = iota
	sectionPassage
	sectionQuestion
)

// DecodeMockTest parses a test file. Title and description are read only before the first
// section marker. Unrecognised or escaped lines are appended to whichever section is open. A
// question is closed by its explanation line; a question still open at end of input is kept.
// Answers that are not integers default to 1 and unparseable ordinals fall back to the number of
// questions parsed so far plus one.
func DecodeMockTest(id string, content []byte) (models.MockTest, Report) {
	var (
		report   Report
		current  section
		question *models.Question
		passage  []string
		body     []string
	)
	test := models.MockTest{ID: id, Questions: []models.Question{}}

	closeQuestion := func() {
		question.Content = strings.Join(body, "\n")
		test.Questions = append(test.Questions, *question)
		question = nil
		body = nil
	}

	for lineNo, raw := range splitLines(content) {
		unescaped, escaped := unescapeLine(raw)
		line, dropped := cleanLine(unescaped)
		if dropped {
			report.addf("line %d: control characters removed", lineNo+1)
		}

		if escaped {
			switch {
			case current == sectionPassage && line != "":
				passage = append(passage, line)
			case current == sectionQuestion && question != nil && line != "":
				body = append(body, line)
			}
			continue
		}

		switch {
		case current == sectionNone && strings.HasPrefix(line, labelTitle):
			test.Title = strings.TrimPrefix(line, labelTitle)
		case current == sectionNone && strings.HasPrefix(line, labelDescription):
			test.Description = strings.TrimPrefix(line, labelDescription)
		case line == markerPassage:
			current = sectionPassage
		case strings.HasPrefix(line, questionMarkerHead) && strings.HasSuffix(line, markerTail):
			current = sectionQuestion
			if question != nil {
				// a question without an explanation line is closed by the next marker
				closeQuestion()
			}
			number, ok := parseOrdinal(line)
			if !ok {
				number = len(test.Questions) + 1
				report.addf("line %d: question ordinal unparseable, using %d", lineNo+1, number)
			}
			question = &models.Question{Number: number, Options: []string{}, CorrectAnswer: 1}
		case strings.HasPrefix(line, labelAnswer):
			if question == nil {
				continue
			}
			answer, err := strconv.Atoi(strings.TrimPrefix(line, labelAnswer))
			if err != nil {
				answer = 1
				report.addf("line %d: correct answer %q is not a number, defaulting to 1", lineNo+1, strings.TrimPrefix(line, labelAnswer))
			}
			question.CorrectAnswer = answer
		case strings.HasPrefix(line, labelExplanation):
			if question == nil {
				continue
			}
			question.Explanation = strings.TrimPrefix(line, labelExplanation)
			closeQuestion()
		case current == sectionPassage:
			if line != "" {
				passage = append(passage, line)
			}
		case current == sectionQuestion && question != nil:
			if option, ok := trimOptionGlyph(line); ok {
				question.Options = append(question.Options, option)
			} else if line != "" && !strings.HasPrefix(line, "=") {
				body = append(body, line)
			}
		}
	}

	if question != nil {
		closeQuestion()
	}
	test.Passage = strings.Join(passage, "\n")

	return test, report
}

func parseOrdinal(marker string) (int, bool) {
	fields := strings.Fields(strings.ReplaceAll(marker, markerTail, ""))
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[1], "번", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func trimOptionGlyph(line string) (string, bool) {
	for _, glyph := range OptionGlyphs {
		if strings.HasPrefix(line, glyph) {
			return strings.TrimSpace(strings.TrimPrefix(line, glyph)), true
		}
	}
	return "", false
}
