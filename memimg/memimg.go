package memimg

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Faces 把食物头像缓存在内存里，按文件名排序
type Faces struct {
	dir  string
	size int

	mu     sync.RWMutex
	images map[string]image.Image
	order  []string
}

// NewFaces 头像会被裁剪缩放到 size x size
func NewFaces(dir string, size int) *Faces {
	return &Faces{
		dir:    dir,
		size:   size,
		images: make(map[string]image.Image),
	}
}

func isFace(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Load reads every face image in the directory. Unreadable files are skipped.
func (f *Faces) Load() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("read faces dir %s: %w", f.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isFace(entry.Name()) {
			continue
		}
		path := filepath.Join(f.dir, entry.Name())
		if err := f.loadFace(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skip face image")
		}
	}
	log.Info().Int("count", f.Count()).Str("dir", f.dir).Msg("faces loaded")
	return nil
}

func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (f *Faces) loadFace(path string) error {
	img, err := LoadImage(path)
	if err != nil {
		return err
	}
	// 居中裁剪成正方形再缩放
	face := imaging.Fill(img, f.size, f.size, imaging.Center, imaging.Lanczos)
	f.put(filepath.Base(path), face)
	return nil
}

func (f *Faces) put(name string, img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.images[name]; !exists {
		f.order = append(f.order, name)
		sort.Strings(f.order)
	}
	f.images[name] = img
}

func (f *Faces) remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.images[name]; !exists {
		return
	}
	delete(f.images, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Watch 检测文件夹变化并热更新到内存，直到 ctx 结束
func (f *Faces) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				f.handle(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Str("dir", f.dir).Msg("faces watcher")
			}
		}
	}()
	return nil
}

func (f *Faces) handle(event fsnotify.Event) {
	if !isFace(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		f.remove(filepath.Base(event.Name))
		log.Debug().Str("path", event.Name).Msg("face removed")
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		// 文件可能还没写完，等下一次 Write 事件
		if err := f.loadFace(event.Name); err != nil {
			log.Debug().Err(err).Str("path", event.Name).Msg("face not ready")
			return
		}
		log.Debug().Str("path", event.Name).Msg("face reloaded")
	}
}

func (f *Faces) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

// Get returns the face at index modulo the number of faces.
func (f *Faces) Get(index int) (image.Image, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.order) == 0 {
		return nil, false
	}
	i := index % len(f.order)
	if i < 0 {
		i += len(f.order)
	}
	img, exists := f.images[f.order[i]]
	return img, exists
}
