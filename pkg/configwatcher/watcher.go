package configwatcher

import (
	"path/filepath"
	"time"

	"github.com/mayankkashyap879/GATEAndTech-sub000/internal/config"
	"github.com/mayankkashyap879/GATEAndTech-sub000/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchConfig 监听配置文件变更并热加载。
// 监听的是所在目录而不是文件本身，编辑器原子替换（rename+create）时不丢监听；
// 写事件做 1s 防抖，加载失败保留旧配置继续运行。
func WatchConfig(configPath string, onReload func(*config.Config)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.Error("Failed to create config watcher", zap.Error(err))
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		logger.Log.Error("Failed to resolve config path", zap.Error(err))
		return
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		logger.Log.Error("Failed to watch config directory", zap.Error(err))
		return
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(time.Second)

		case <-debounce.C:
			newCfg, err := config.LoadConfig(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config, keeping previous", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", absPath))
			onReload(newCfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
