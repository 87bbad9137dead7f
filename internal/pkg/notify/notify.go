package notify

// Mailer 定义注册流程使用的邮件发送接口。
type Mailer interface {
	// SendConfirmation 发送带确认链接的注册确认邮件。
	//
	// 参数:
	//   toEmail: 接收邮箱
	//   name: 收件人显示名称
	//   link: 确认链接（含暂存记录 id）
	SendConfirmation(toEmail, name, link string) error

	// SendWelcome 在账号确认成功后发送欢迎邮件。
	SendWelcome(toEmail, name string) error
}
