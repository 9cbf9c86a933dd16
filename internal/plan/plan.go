package plan

// 套餐名称，封闭枚举
const (
	Free     = "free"
	Standard = "standard"
	Premium  = "premium"
)

// Definition 套餐额度定义，不落库
type Definition struct {
	Name                 string   `json:"name"`
	DisplayName          string   `json:"display_name"`
	TranscriptionMinutes int      `json:"transcription_minutes"` // 按条数计，见 quota_service
	MaxFileSizeMB        int      `json:"max_file_size_mb"`
	GPTRequests          int      `json:"gpt_requests"`
	Models               []string `json:"models"`
	TTSCharacters        int      `json:"tts_characters"`
	ConcurrentTasks      int      `json:"concurrent_tasks"`
}

// AllowsModel 模型是否在套餐列表中（字面匹配）
func (d Definition) AllowsModel(tier string) bool {
	for _, m := range d.Models {
		if m == tier {
			return true
		}
	}
	return false
}

// Lookup 按名称查询套餐，未知名称回退到 free
func Lookup(name string) Definition {
	switch name {
	case Standard:
		return Definition{
			Name:                 Standard,
			DisplayName:          "Standard",
			TranscriptionMinutes: 150,
			MaxFileSizeMB:        200,
			GPTRequests:          100,
			Models:               []string{"tiny", "base", "small", "medium"},
			TTSCharacters:        50000,
			ConcurrentTasks:      2,
		}
	case Premium:
		return Definition{
			Name:                 Premium,
			DisplayName:          "Premium",
			TranscriptionMinutes: 500,
			MaxFileSizeMB:        500,
			GPTRequests:          400,
			Models:               []string{"tiny", "base", "small", "medium", "large"},
			TTSCharacters:        200000,
			ConcurrentTasks:      5,
		}
	default:
		return Definition{
			Name:                 Free,
			DisplayName:          "Free",
			TranscriptionMinutes: 30,
			MaxFileSizeMB:        50,
			GPTRequests:          20,
			Models:               []string{"tiny", "base"},
			TTSCharacters:        10000,
			ConcurrentTasks:      1,
		}
	}
}

// Names 全部套餐名称
func Names() []string {
	return []string{Free, Standard, Premium}
}

// Valid 是否为已知套餐
func Valid(name string) bool {
	switch name {
	case Free, Standard, Premium:
		return true
	}
	return false
}

// All 全部套餐定义，按 Names 顺序
func All() []Definition {
	names := Names()
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		defs = append(defs, Lookup(n))
	}
	return defs
}
