package dto

type ExtractYouTubeRequest struct {
	URL string `json:"url"`
}

// MediaResponse 抽取后的音频对象
type MediaResponse struct {
	AudioRef    string `json:"audio_ref"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url,omitempty"`
}
