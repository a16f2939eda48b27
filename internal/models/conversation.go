package models

// Turn 一轮对话（用户输入 + 助手回复），追加后不可变
type Turn struct {
	User      string `json:"user"`      // 用户输入
	Assistant string `json:"assistant"` // 助手回复
}

// Conversation 对话历史，活跃会话期间只追加
type Conversation struct {
	Turns []Turn `json:"turns"`
}

// Append 追加一轮对话
func (c *Conversation) Append(turn Turn) {
	c.Turns = append(c.Turns, turn)
}

// Len 返回轮数
func (c *Conversation) Len() int {
	return len(c.Turns)
}

// Clone 深拷贝对话（用于持久化快照，避免共享底层切片）
func (c *Conversation) Clone() *Conversation {
	turns := make([]Turn, len(c.Turns))
	copy(turns, c.Turns)
	return &Conversation{Turns: turns}
}
