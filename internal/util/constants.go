package util

// 分页默认值
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)
