package email

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/qs3c/visionflow_server/config"
)

type Service struct {
	cfg  *config.EmailConfig
	send func(m *gomail.Message) error
}

func NewService(cfg *config.EmailConfig) *Service {
	s := &Service{cfg: cfg}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
		return d.DialAndSend(m)
	}
	return s
}

// Enabled 未配置 SMTP 主机时不发信
func (s *Service) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.SMTPHost != ""
}

// SendOrderApproved 通知用户订单已通过、订阅已开通
func (s *Service) SendOrderApproved(to, name, planLabel string, endAt time.Time) error {
	subject := "Your VisionFlow subscription is active"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #16a34a;">Payment approved</h2>
        <p>Hi %s,</p>
        <p>Your payment for the <strong>%s</strong> plan has been verified and your subscription is now active.</p>
        <p>It is valid until <strong>%s</strong> (UTC). Your API key is available on the subscription page.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(planLabel), endAt.UTC().Format("2006-01-02 15:04"))

	return s.sendHTML(to, subject, body)
}

// SendOrderRejected 通知用户订单被拒绝，附带管理员备注
func (s *Service) SendOrderRejected(to, name, planLabel, adminNote string) error {
	subject := "Your VisionFlow payment could not be verified"
	note := adminNote
	if note == "" {
		note = "No reason was given."
	}
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #dc2626;">Payment rejected</h2>
        <p>Hi %s,</p>
        <p>We could not verify your payment for the <strong>%s</strong> plan.</p>
        <p style="background-color: #f3f4f6; padding: 10px;">%s</p>
        <p>If you believe this is a mistake, submit a new order with the correct transaction reference.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(planLabel), html.EscapeString(note))

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
