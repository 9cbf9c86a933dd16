package dto

type TTSRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Voice string `json:"voice"`
}

type TTSResponse struct {
	ObjectRef     string  `json:"object_ref"`
	DownloadURL   string  `json:"download_url,omitempty"`
	Characters    int     `json:"characters"`
	EstimatedCost float64 `json:"estimated_cost"`
}
