package paths

import (
	"os"
	"path/filepath"
)

// GetDataDir 获取应用数据目录
func GetDataDir() string {
	userConfigDir, err := os.UserConfigDir()
	if err != nil || userConfigDir == "" {
		return filepath.Join(".", "data")
	}
	return filepath.Join(userConfigDir, "builder-navigator")
}

// GetSessionDir 获取会话持久化目录
func GetSessionDir() string {
	return filepath.Join(GetDataDir(), "sessions")
}
