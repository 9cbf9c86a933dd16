package dto

type SaveAPIKeyRequest struct {
	Service string `json:"service" binding:"required"`
	Key     string `json:"key" binding:"required"`
}

// APIKeyInfo 只返回掩码后的密钥
type APIKeyInfo struct {
	Service   string `json:"service"`
	MaskedKey string `json:"masked_key"`
	UpdatedAt string `json:"updated_at"`
}
