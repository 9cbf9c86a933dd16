package service

// RequestContext 每个请求从 JWT 构建，显式传入各服务
type RequestContext struct {
	UserID  int64
	IsAdmin bool
}
