package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shlokparab/builder-navigator/internal/logger"
	"github.com/shlokparab/builder-navigator/internal/models"
)

var log = logger.New("Store")

// snapshotVersion 持久化记录的格式版本号
const snapshotVersion = 1

// record 会话快照的持久化记录
// 带版本号的 JSON 序列化，可移植、可检视，不绑定运行时对象图
type record struct {
	Version int           `json:"version"`
	Token   string        `json:"token"`
	SavedAt time.Time     `json:"saved_at"`
	Turns   []models.Turn `json:"turns"`
}

// Store 会话快照存储
// 每个 token 一个逻辑槽位，保存时整体覆盖；进程重启后仍可读
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New 创建存储，目录不存在时自动建立
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// slotPath 获取 token 对应的快照文件路径
// 空 token 落到单槽位 latest（无 token 调用方的兼容行为）
func (s *Store) slotPath(token string) string {
	if token == "" {
		token = "latest"
	}
	return filepath.Join(s.dir, sanitizeToken(token)+".json")
}

// sanitizeToken 清洗 token 中不适合做文件名的字符
func sanitizeToken(token string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, token)
}

// Save 保存会话快照，同一 token 整体覆盖
func (s *Store) Save(token string, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{
		Version: snapshotVersion,
		Token:   token,
		SavedAt: time.Now(),
		Turns:   conv.Turns,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return os.WriteFile(s.slotPath(token), data, 0644)
}

// Load 读取会话快照
// 从未保存、文件损坏或版本不识别都按不存在处理（记日志，不报错）
func (s *Store) Load(token string) *models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.slotPath(token))
	if err != nil {
		return nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn("corrupt session snapshot for %s: %v", token, err)
		return nil
	}
	if rec.Version != snapshotVersion {
		log.Warn("unknown snapshot version %d for %s", rec.Version, token)
		return nil
	}

	return &models.Conversation{Turns: rec.Turns}
}
