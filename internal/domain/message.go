package domain

import "time"

// MessageSummary 表示邮件列表中的一条摘要。
// 内容来自上游邮箱的元数据请求，不包含正文。
type MessageSummary struct {
	ID      string `json:"id"`      // 上游邮件 ID
	Subject string `json:"subject"` // 主题
	From    string `json:"from"`    // 发件人
	To      string `json:"to"`      // 收件人头（原样保留）
	Date    string `json:"date"`    // 日期头（原样保留）
	Snippet string `json:"snippet"` // 摘要片段
}

// MessageDetail 表示单封邮件的完整内容。
type MessageDetail struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
	BodyHTML string `json:"bodyHtml"` // HTML 正文（可能为空）
	BodyText string `json:"bodyText"` // 纯文本正文（可能为空）
	OTP      string `json:"otp,omitempty"` // 从正文提取的验证码（可能为空）
}

// LogEntry 表示投递日志中的一条记录。
// 同一封邮件多次出现只更新 LastSeenAt，不产生新记录。
type LogEntry struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(128)"` // 上游邮件 ID
	Alias      string    `json:"alias" gorm:"index;type:varchar(255)"`   // 匹配到的别名（可能为空）
	From       string    `json:"from" gorm:"column:from_email"`          // 发件人
	Subject    string    `json:"subject"`                                // 主题
	Date       string    `json:"date"`                                   // 日期头
	Snippet    string    `json:"snippet"`                                // 摘要片段
	LastSeenAt time.Time `json:"lastSeenAt" gorm:"index"`                // 最近一次出现时间
}
