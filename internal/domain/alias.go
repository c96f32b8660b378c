package domain

import "time"

// Alias 表示一个一次性转发别名。
// 所有发送到别名的邮件都由上游转发管道投递到真实邮箱，
// 后端通过收件头匹配把邮件归属到别名。
type Alias struct {
	Address    string    `json:"address" gorm:"primaryKey;type:varchar(255)"` // 别名地址（唯一，小写）
	CreatedAt  time.Time `json:"createdAt"`                                   // 首次注册时间
	LastUsedAt time.Time `json:"lastUsedAt"`                                  // 最近一次注册或匹配时间
	Hits       int       `json:"hits"`                                        // 使用次数（单调递增）
	Active     bool      `json:"active"`                                      // 是否启用
}

// Domain 表示允许签发别名的域名。
// 别名的域名部分必须存在且处于激活状态，否则注册与匹配都会被拒绝。
type Domain struct {
	Name      string    `json:"name" gorm:"primaryKey;type:varchar(190)"` // 域名（唯一，小写）
	Active    bool      `json:"active"`                                   // 是否启用
	CreatedAt time.Time `json:"createdAt"`                                // 添加时间
}
