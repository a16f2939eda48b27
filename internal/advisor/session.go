package advisor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/model"

	"github.com/shlokparab/builder-navigator/internal/embed"
	"github.com/shlokparab/builder-navigator/internal/llm"
	"github.com/shlokparab/builder-navigator/internal/logger"
	"github.com/shlokparab/builder-navigator/internal/models"
	"github.com/shlokparab/builder-navigator/internal/store"
)

// 日志实例
var log = logger.New("Advisor")

// 超时与会话配置常量
const (
	SubmitTimeout = 90 * time.Second // 单次验证调用的最大时长
	SessionTTL    = 30 * time.Minute // 空闲会话的过期时间
)

// ModelProvider 补全服务提供函数
// 每次调用返回可用的 model.LLM，便于运行时换配置和测试注入
type ModelProvider func(ctx context.Context) (model.LLM, error)

// Session 单个调用方的验证会话
// 每个会话有独立的互斥锁，消除跨请求的轮次交错
// lastActive 用原子时间戳：Submit 与 Sweep/getOrCreate 没有共同锁
type Session struct {
	mu           sync.Mutex
	conversation *models.Conversation
	lastActive   atomic.Int64 // unix 纳秒
}

// touch 刷新活跃时间
func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// expired 判断会话是否超过空闲期限
func (s *Session) expired() bool {
	return time.Since(time.Unix(0, s.lastActive.Load())) > SessionTTL
}

// Manager 按调用方 token 管理验证会话
type Manager struct {
	modelProvider ModelProvider
	store         *store.Store
	sessions      map[string]*Session
	mu            sync.RWMutex
}

// NewManager 创建会话管理器
func NewManager(provider ModelProvider, st *store.Store) *Manager {
	return &Manager{
		modelProvider: provider,
		store:         st,
		sessions:      make(map[string]*Session),
	}
}

// IssueToken 签发新的会话 token
func (m *Manager) IssueToken() string {
	return uuid.NewString()
}

// getOrCreate 获取或创建会话，过期会话原地换新
func (m *Manager) getOrCreate(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok || sess.expired() {
		sess = &Session{conversation: &models.Conversation{}}
		sess.touch()
		m.sessions[token] = sess
	}
	return sess
}

// lockCurrent 获取 token 对应的会话并锁定
// 加锁后校验会话仍是映射中的那一个：排队等锁期间会话可能已被
// 过期换新或清理，锁定孤儿会话会把轮次落到无人可见的对话上，重试即可
func (m *Manager) lockCurrent(token string) *Session {
	for {
		sess := m.getOrCreate(token)
		sess.mu.Lock()

		m.mu.RLock()
		current := m.sessions[token] == sess
		m.mu.RUnlock()
		if current {
			return sess
		}
		sess.mu.Unlock()
	}
}

// Sweep 清理过期会话，返回清理数量
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, sess := range m.sessions {
		if sess.expired() {
			delete(m.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		log.Debug("swept %d expired sessions", removed)
	}
	return removed
}

// StartSweeper 启动后台清理，ctx 取消后停止
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Submit 提交一段想法描述，返回提取后的结构化结果
// 状态为 sufficient 时快照对话到持久化存储并重置会话；
// insufficient 时会话保持活跃，下一次提交继续累积轮次
func (m *Manager) Submit(ctx context.Context, token, ideaText string) (*models.ExtractedResult, error) {
	// 会话独占锁：同一 token 的提交串行执行
	sess := m.lockCurrent(token)
	defer sess.mu.Unlock()
	sess.touch()

	submitCtx, cancel := context.WithTimeout(ctx, SubmitTimeout)
	defer cancel()

	llmModel, err := m.modelProvider(submitCtx)
	if err != nil {
		return nil, fmt.Errorf("create model error: %w", err)
	}

	prompt := embed.Render(embed.ValidateIdeaPrompt, map[string]string{"IDEA": ideaText})
	history := llm.HistoryFromTurns(sess.conversation.Turns)

	reply, err := llm.Generate(submitCtx, llmModel, history, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion call error: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyResponse
	}

	// 先落轮次再解析：解析失败时本轮仍保留在对话中，不做进一步变更
	sess.conversation.Append(models.Turn{User: ideaText, Assistant: reply})

	result, err := Extract(reply)
	if err != nil {
		log.Warn("extract failed for session %s: %v", truncateString(token, 8), err)
		return nil, err
	}

	if result.Status == models.StatusSufficient {
		snapshot := sess.conversation.Clone()
		if err := m.store.Save(token, snapshot); err != nil {
			// 持久化失败不吞掉验证结果，但后续阶段会拿不到会话
			log.Error("save session snapshot error: %v", err)
		} else {
			log.Info("session %s reached sufficient after %d turns, snapshot saved",
				truncateString(token, 8), snapshot.Len())
		}
		sess.conversation = &models.Conversation{}
	}

	return result, nil
}

// TurnCount 返回指定会话当前累积的轮数（不存在时为 0）
// 先放掉管理器锁再取会话锁，保持与 lockCurrent 一致的加锁顺序
func (m *Manager) TurnCount(token string) int {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return 0
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conversation.Len()
}
