package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig 热更新配置
type WatchConfig struct {
	Enabled      bool          // 是否启用热更新
	CooldownTime time.Duration // 冷却时间，避免频繁更新
}

// DefaultWatchConfig 默认热更新配置
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Enabled:      true,
		CooldownTime: 2 * time.Second,
	}
}

// Watcher reloads the config file on change and hands the fresh AppConfig to
// the registered handler. Editors that replace the file atomically emit a
// Create event, so both Write and Create trigger a reload.
type Watcher struct {
	config     WatchConfig
	configPath string
	watcher    *fsnotify.Watcher
	onUpdate   func(AppConfig)
	lastReload time.Time
	mu         sync.Mutex
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewWatcher 创建配置监听器
func NewWatcher(configPath string, cfg WatchConfig) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		config:     cfg,
		configPath: configPath,
		watcher:    fw,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// OnUpdate 设置重载回调
func (w *Watcher) OnUpdate(fn func(AppConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUpdate = fn
}

// Start 启动监听
func (w *Watcher) Start(ctx context.Context) error {
	if !w.config.Enabled {
		return nil
	}
	if err := w.watcher.Add(w.configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}
	go w.watch(ctx)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() error {
	if !w.config.Enabled {
		if w.watcher != nil {
			return w.watcher.Close()
		}
		return nil
	}

	select {
	case <-w.stopChan:
		// 已经停止
	default:
		close(w.stopChan)
	}

	select {
	case <-w.doneChan:
	case <-time.After(1 * time.Second):
		// 超时，可能 watch goroutine 没有启动
	}

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// 只处理写入和创建事件
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.handleConfigChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// 记录错误但继续监听
			fmt.Printf("Watcher error: %v\n", err)
		}
	}
}

// handleConfigChange 重新加载配置；校验失败则保留旧配置。
func (w *Watcher) handleConfigChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if time.Since(w.lastReload) < w.config.CooldownTime {
		return
	}

	cfg, err := LoadWithEnvOverrides(w.configPath)
	if err != nil {
		fmt.Printf("Failed to reload config: %v\n", err)
		return
	}
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
	w.lastReload = time.Now()
}

// GetLastReloadTime 获取最后重载时间
func (w *Watcher) GetLastReloadTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}
