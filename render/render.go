// Package render draws game snapshots to PNG images.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fogleman/gg"
	"github.com/hoshinonyaruko/snake-in-web/memimg"
	"github.com/hoshinonyaruko/snake-in-web/structs"
)

const (
	backgroundColor = "#dcdcdc"
	headColor       = "#2c3e50"
	bodyColor       = "#3498db"
	borderColor     = "#f0f0f0"
	foodColor       = "#e74c3c"
)

// Renderer 把快照画成图片。faces 可以为 nil，此时食物画成红色圆形。
type Renderer struct {
	blockSize int
	faces     *memimg.Faces

	// 背景和网格按尺寸缓存
	base sync.Map
}

func New(blockSize int, faces *memimg.Faces) *Renderer {
	return &Renderer{blockSize: blockSize, faces: faces}
}

// FaceSize is the pixel size face images should be scaled to.
func FaceSize(blockSize int) int {
	return blockSize * 3 / 2
}

// Render 渲染地图
func (r *Renderer) Render(snap structs.Snapshot) image.Image {
	bs := float64(r.blockSize)
	width := snap.Width * r.blockSize
	height := snap.Height * r.blockSize

	dc := gg.NewContext(width, height)
	dc.DrawImage(r.baseLayer(snap.Width, snap.Height), 0, 0)

	// 绘制蛇，蛇头颜色不同
	dc.SetLineWidth(1)
	for i, pos := range snap.Snake {
		if i == 0 {
			dc.SetHexColor(headColor)
		} else {
			dc.SetHexColor(bodyColor)
		}
		x, y := float64(pos.X)*bs, float64(pos.Y)*bs
		dc.DrawRectangle(x, y, bs, bs)
		dc.Fill()
		dc.SetHexColor(borderColor)
		dc.DrawRectangle(x, y, bs, bs)
		dc.Stroke()
	}

	if snap.HasFood {
		r.drawFood(dc, snap)
	}

	switch {
	case snap.Over:
		drawGameOver(dc, snap, width, height)
	case snap.Phase == structs.PhasePaused:
		dc.SetRGBA(0, 0, 0, 0.4)
		dc.DrawRectangle(0, 0, float64(width), float64(height))
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored("PAUSED", float64(width)/2, float64(height)/2, 0.5, 0.5)
	}
	return dc.Image()
}

func (r *Renderer) drawFood(dc *gg.Context, snap structs.Snapshot) {
	bs := float64(r.blockSize)
	cx := float64(snap.Food.X)*bs + bs/2
	cy := float64(snap.Food.Y)*bs + bs/2
	radius := bs / 1.5

	if r.faces != nil {
		if face, ok := r.faces.Get(snap.Face); ok {
			// 头像裁成圆形
			dc.Push()
			dc.DrawCircle(cx, cy, radius)
			dc.Clip()
			dc.DrawImageAnchored(face, int(cx), int(cy), 0.5, 0.5)
			dc.ResetClip()
			dc.Pop()

			dc.SetHexColor(foodColor)
			dc.SetLineWidth(2)
			dc.DrawCircle(cx, cy, radius)
			dc.Stroke()
			dc.SetLineWidth(1)
			return
		}
	}

	// 没有头像时画一个红色圆形
	dc.SetHexColor(foodColor)
	dc.DrawCircle(cx, cy, radius)
	dc.Fill()
}

func drawGameOver(dc *gg.Context, snap structs.Snapshot, width, height int) {
	w, h := float64(width), float64(height)
	dc.SetRGBA(0, 0, 0, 0.7)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	title := "GAME OVER"
	if snap.Reason == structs.ReasonWin {
		title = "YOU WIN"
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(title, w/2, h/2-20, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("Score: %d", snap.Score), w/2, h/2+20, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("Best: %d", snap.HighScore), w/2, h/2+50, 0.5, 0.5)
}

// baseLayer returns the cached background and grid for a board size.
func (r *Renderer) baseLayer(cols, rows int) image.Image {
	key := fmt.Sprintf("%d_%d_%d", cols, rows, r.blockSize)
	if cached, ok := r.base.Load(key); ok {
		return cached.(image.Image)
	}

	width, height := cols*r.blockSize, rows*r.blockSize
	dc := gg.NewContext(width, height)
	dc.SetHexColor(backgroundColor)
	dc.Clear()

	dc.SetRGBA255(200, 200, 200, 51)
	dc.SetLineWidth(0.5)
	for x := 0; x <= width; x += r.blockSize {
		dc.DrawLine(float64(x), 0, float64(x), float64(height))
		dc.Stroke()
	}
	for y := 0; y <= height; y += r.blockSize {
		dc.DrawLine(0, float64(y), float64(width), float64(y))
		dc.Stroke()
	}

	img := dc.Image()
	actual, _ := r.base.LoadOrStore(key, img)
	return actual.(image.Image)
}

// WritePNG encodes the rendered snapshot to w.
func (r *Renderer) WritePNG(w io.Writer, snap structs.Snapshot) error {
	return png.Encode(w, r.Render(snap))
}

// SavePNG 保存图片，目录不存在时创建
func (r *Renderer) SavePNG(path string, snap structs.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return gg.SavePNG(path, r.Render(snap))
}
