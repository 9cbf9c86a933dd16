package dto

// 文本来源二选一：直接给文本，或引用一条转写记录
type SummarizeRequest struct {
	Text            string `json:"text"`
	TranscriptionID int64  `json:"transcription_id"`
	Style           string `json:"style"`
}

type KeywordsRequest struct {
	Text            string `json:"text"`
	TranscriptionID int64  `json:"transcription_id"`
}

type AnswerRequest struct {
	Text            string `json:"text"`
	TranscriptionID int64  `json:"transcription_id"`
	Question        string `json:"question"`
}

type GPTResponse struct {
	Result   string   `json:"result"`
	Keywords []string `json:"keywords,omitempty"`
}
