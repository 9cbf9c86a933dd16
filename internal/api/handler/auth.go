package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// ChangePassword 修改密码
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(rc.UserID, &req); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "密码已修改", nil)
}

// ForgotPassword 发送密码重置邮件，邮箱不存在时同样返回成功
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(&req); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "如果该邮箱已注册，重置链接已发送", nil)
}

// ResetPassword 使用重置令牌设置新密码
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "密码已重置", nil)
}

// GithubAuth 返回 GitHub 授权地址
// GET /api/v1/auth/github?redirect_uri=xxx
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	authURL, err := h.authService.GithubAuthURL(c.Request.Context(), c.Query("redirect_uri"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"url": authURL})
}

// GithubCallback GitHub 回调，带前端回跳地址时重定向并附带 token
// GET /api/v1/auth/github/callback?code=xxx&state=xxx
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.ParamError(c, "缺少 code 或 state")
		return
	}

	resp, redirectURI, err := h.authService.GithubCallback(c.Request.Context(), code, state)
	if err != nil {
		respondError(c, err)
		return
	}

	if redirectURI != "" {
		if target, err := url.Parse(redirectURI); err == nil {
			q := target.Query()
			q.Set("token", resp.Token)
			target.RawQuery = q.Encode()
			c.Redirect(http.StatusFound, target.String())
			return
		}
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}
