package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher 监听配置文件变更并回调最新配置。只有可热更的字段（档位、
// 再平衡开关、调度间隔）应当被上层应用，密钥与市场集合忽略变更。
type Watcher struct {
	Path string
	// Cooldown 两次重载的最小间隔，编辑器连续写入时避免抖动。
	Cooldown time.Duration
	Log      *zap.Logger
}

// Start 启动监听，直到 ctx 取消。配置解析或校验失败时保留旧配置，
// 只记录告警。
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.Path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	cooldown := w.Cooldown
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < cooldown {
				continue
			}
			lastReload = time.Now()
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				if w.Log != nil {
					w.Log.Warn("config_reload_failed", zap.Error(err))
				}
				continue
			}
			if w.Log != nil {
				w.Log.Info("config_reload", zap.String("path", w.Path))
			}
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.Log != nil {
				w.Log.Warn("config_watch_error", zap.Error(err))
			}
		}
	}
}
