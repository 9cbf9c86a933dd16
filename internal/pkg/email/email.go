package email

import (
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"

	"github.com/transcriptflow/server/config"
)

const productName = "TranscriptFlow"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg  *config.EmailConfig
	send sendFunc
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, send: smtp.SendMail}
}

// Configured 未配置 SMTP 主机时不发送邮件
func (s *Service) Configured() bool {
	return s.cfg != nil && s.cfg.SMTPHost != ""
}

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">重置密码</h2>
        <p>{{.Name}}，您好：</p>
        <p>我们收到了您的密码重置请求，请点击下方按钮设置新密码：</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">重置密码</a>
        </div>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">{{.Link}}</p>
        <p>链接 {{.Minutes}} 分钟内有效。如果不是您本人操作，请忽略此邮件。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">{{.Product}} 系统邮件，请勿回复。</p>
    </div>
</body>
</html>
`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">欢迎使用 {{.Product}}</h2>
        <p>{{.Name}}，您好！</p>
        <p>现在您可以上传音频或视频、提取 YouTube 音频并生成带时间轴的转写文本，
        还可以对转写结果做摘要、关键词提取和问答。</p>
        <p>免费套餐每月包含 30 次转写。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">{{.Product}} 系统邮件，请勿回复。</p>
    </div>
</body>
</html>
`))

// SendPasswordReset 发送密码重置链接
func (s *Service) SendPasswordReset(to, username, resetLink string, expireMinutes int) error {
	data := map[string]interface{}{
		"Name":    username,
		"Link":    resetLink,
		"Minutes": expireMinutes,
		"Product": productName,
	}
	return s.sendTemplate(to, "重置密码 - "+productName, resetTemplate, data)
}

// SendWelcome 发送注册欢迎邮件
func (s *Service) SendWelcome(to, username string) error {
	data := map[string]interface{}{
		"Name":    username,
		"Product": productName,
	}
	return s.sendTemplate(to, "欢迎使用 "+productName, welcomeTemplate, data)
}

func (s *Service) sendTemplate(to, subject string, tpl *template.Template, data interface{}) error {
	var body strings.Builder
	if err := tpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return s.sendHTML(to, subject, body.String())
}

// sendHTML 组装 MIME 邮件并发送，头部按固定顺序写入
func (s *Service) sendHTML(to, subject, body string) error {
	if !s.Configured() {
		return fmt.Errorf("smtp not configured")
	}

	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
