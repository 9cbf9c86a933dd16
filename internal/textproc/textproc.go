package textproc

import (
	"fmt"
	"strings"

	"github.com/transcriptflow/server/internal/model"
)

const (
	DefaultChunkChars   = 2000
	SummaryChunkChars   = 2500
	ChapterWindowSecond = 60.0
)

// 摘要风格
const (
	StyleBullet   = "bullet"
	StyleConcise  = "concise"
	StyleDetailed = "detailed"
)

var validStyles = map[string]bool{
	StyleBullet:   true,
	StyleConcise:  true,
	StyleDetailed: true,
}

func ValidStyle(style string) bool {
	return validStyles[style]
}

// ChunkText 按字符数切分文本，按 rune 计数以免截断多字节字符
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/maxChars+1)
	for pos := 0; pos < len(runes); pos += maxChars {
		end := pos + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[pos:end]))
	}
	return chunks
}

// Chapters 把片段按时间窗口归并为章节
// 片段开始时间距当前章节起点达到窗口长度时开新章节
func Chapters(segments []model.Segment, window float64) []string {
	if len(segments) == 0 {
		return []string{}
	}
	if window <= 0 {
		window = ChapterWindowSecond
	}

	var chapters []string
	var texts []string
	currentStart := 0.0
	index := 1

	flush := func() {
		chapters = append(chapters, fmt.Sprintf("[Chapter %d] at %s => %s",
			index, FormatTimestamp(currentStart), strings.Join(texts, " ")))
	}

	for _, seg := range segments {
		if seg.Start-currentStart >= window && len(texts) > 0 {
			flush()
			index++
			texts = texts[:0]
			currentStart = seg.Start
		}
		texts = append(texts, seg.Text)
	}
	if len(texts) > 0 {
		flush()
	}
	return chapters
}

// FormatTimestamp 秒数格式化为 MM:SS
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// SummaryPrompt 单个分块的摘要提示词
func SummaryPrompt(chunk, style string) string {
	switch style {
	case StyleBullet:
		return "Summarize the following text concisely as a bulleted list:\n\n" + chunk
	case StyleConcise:
		return "Write a very concise summary (only a few sentences) of the following text:\n\n" + chunk
	default:
		return "Write a detailed summary of the following text:\n\n" + chunk
	}
}

// CombinePrompt 合并多个分块摘要
func CombinePrompt(partials []string, style string) string {
	return fmt.Sprintf("Here are several partial summaries. Combine them into a single summary (%s if possible):\n\n%s",
		style, strings.Join(partials, "\n\n"))
}

func KeywordsPrompt(text string) string {
	return "Extract the most important keywords from the text below, " +
		"in the same language as the text. " +
		"Return them as a list separated by commas.\n\n" + text
}

func AnswerPrompt(text, question string) string {
	return fmt.Sprintf("Here is a text:\n\n%s\n\nQuestion: %s\n\n"+
		"Answer concisely and precisely, based only on the text.", text, question)
}

// SplitKeywords 解析逗号分隔的关键词列表
func SplitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(p), "-*•"))
		if p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

// SegmentsToText 拼接片段文本
func SegmentsToText(segments []model.Segment) string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}
