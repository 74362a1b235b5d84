package table

import (
	"regexp"
	"strings"

	"meligy/internal/models"
)

var tableKeywords = []string{
	"create a table", "make a table", "generate a table", "design a table",
	"table for", "organize in table", "tabular format", "create chart",
	"أنشئ جدول", "اعمل جدول", "صمم جدول", "جدول لـ",
	"crear una tabla", "hacer una tabla", "generar una tabla", "diseñar una tabla",
	"créer un tableau", "faire un tableau", "générer un tableau", "concevoir un tableau",
	"erstelle eine tabelle", "mache eine tabelle", "generiere eine tabelle", "entwerfe eine tabelle",
	"создать таблицу", "创建表格", "テーブルを作成", "테이블 만들기",
}

// ShouldGenerate reports whether text asks for a table.
func ShouldGenerate(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range tableKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

const DefaultTopic = "Information Table"

var DefaultColumns = []string{"Item", "Description", "Value"}

var (
	topicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)table (?:for|about|of) ([^,.\n]+)`),
		regexp.MustCompile(`(?i)create.*table.*for ([^,.\n]+)`),
		regexp.MustCompile(`(?i)([^,.\n]+) table`),
	}
	columnPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)columns?:?\s*([^.\n]+)`),
		regexp.MustCompile(`(?i)headers?:?\s*([^.\n]+)`),
	}
	rowPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)rows?:?\s*([^.\n]+)`),
		regexp.MustCompile(`(?i)data:?\s*([^.\n]+)`),
		regexp.MustCompile(`(?i)items?:?\s*([^.\n]+)`),
	}
	listSep = regexp.MustCompile(`[,;|]`)

	styleHints = []struct {
		style models.TableStyle
		re    *regexp.Regexp
	}{
		{models.StyleScientific, regexp.MustCompile(`(?i)scientific|research|academic`)},
		{models.StyleBusiness, regexp.MustCompile(`(?i)business|corporate|professional`)},
		{models.StyleEducational, regexp.MustCompile(`(?i)educational|learning|teaching`)},
		{models.StyleComparison, regexp.MustCompile(`(?i)comparison|compare|versus`)},
	}
)

// ParseRequest turns a free-text table request into a TableRequest.
func ParseRequest(text string) models.TableRequest {
	columns := firstList(columnPatterns, text)
	if len(columns) == 0 {
		columns = append([]string(nil), DefaultColumns...)
	}
	rows := firstList(rowPatterns, text)
	if rows == nil {
		rows = []string{}
	}
	return models.TableRequest{
		Topic:   extractTopic(text),
		Columns: columns,
		Rows:    rows,
		Style:   extractStyle(text),
	}
}

func extractTopic(text string) string {
	for _, re := range topicPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if topic := strings.TrimSpace(m[1]); topic != "" {
				return topic
			}
		}
	}
	return DefaultTopic
}

func firstList(patterns []*regexp.Regexp, text string) []string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var out []string
		for _, part := range listSep.Split(m[1], -1) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func extractStyle(text string) models.TableStyle {
	for _, h := range styleHints {
		if h.re.MatchString(text) {
			return h.style
		}
	}
	return models.StyleScientific
}
