package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shlokparab/builder-navigator/internal/models"
)

// TestSaveLoad 测试快照保存与读取
func TestSaveLoad(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	conv := &models.Conversation{Turns: []models.Turn{
		{User: "I want to build a meal planner", Assistant: "Who is the target user?"},
		{User: "Busy parents", Assistant: "The idea is well defined."},
	}}

	t.Run("保存后可读回", func(t *testing.T) {
		if err := st.Save("token-1", conv); err != nil {
			t.Fatalf("保存失败: %v", err)
		}
		got := st.Load("token-1")
		if got == nil {
			t.Fatal("读取失败")
		}
		if got.Len() != 2 {
			t.Errorf("轮数错误: %d", got.Len())
		}
		if got.Turns[0].User != conv.Turns[0].User {
			t.Errorf("轮次内容不一致: %q", got.Turns[0].User)
		}
	})

	t.Run("同一token整体覆盖", func(t *testing.T) {
		shorter := &models.Conversation{Turns: conv.Turns[:1]}
		if err := st.Save("token-1", shorter); err != nil {
			t.Fatalf("保存失败: %v", err)
		}
		got := st.Load("token-1")
		if got == nil || got.Len() != 1 {
			t.Fatalf("覆盖后轮数错误: %+v", got)
		}
	})

	t.Run("未保存的token返回nil", func(t *testing.T) {
		if got := st.Load("never-saved"); got != nil {
			t.Errorf("期望 nil, 实际 %+v", got)
		}
	})

	t.Run("空token落到latest槽位", func(t *testing.T) {
		if err := st.Save("", conv); err != nil {
			t.Fatalf("保存失败: %v", err)
		}
		if got := st.Load(""); got == nil {
			t.Error("latest 槽位读取失败")
		}
	})
}

// TestLoadCorrupt 测试损坏和版本不符的快照按不存在处理
func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	t.Run("损坏的JSON", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("写测试文件失败: %v", err)
		}
		if got := st.Load("bad"); got != nil {
			t.Errorf("损坏快照应返回 nil, 实际 %+v", got)
		}
	})

	t.Run("版本不识别", func(t *testing.T) {
		path := filepath.Join(dir, "old.json")
		if err := os.WriteFile(path, []byte(`{"version": 99, "turns": []}`), 0644); err != nil {
			t.Fatalf("写测试文件失败: %v", err)
		}
		if got := st.Load("old"); got != nil {
			t.Errorf("版本不符应返回 nil, 实际 %+v", got)
		}
	})
}

// TestSanitizeToken 测试文件名清洗
func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"abc-123_XYZ", "abc-123_XYZ"},
		{"../escape", "___escape"},
		{"a/b\\c", "a_b_c"},
	}
	for _, c := range cases {
		if got := sanitizeToken(c.in); got != c.want {
			t.Errorf("sanitizeToken(%q) = %q, 期望 %q", c.in, got, c.want)
		}
	}
}
