package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// FramePool переиспользует кадровые буферы одного размера, чтобы покадровый
// цикл не создавал 8 МБ мусора на каждый кадр.
type FramePool struct {
	rect image.Rectangle
	pool sync.Pool

	allocated atomic.Int64
}

func NewFramePool(width, height int) *FramePool {
	p := &FramePool{rect: image.Rect(0, 0, width, height)}
	p.pool.New = func() any {
		p.allocated.Add(1)
		return image.NewRGBA(p.rect)
	}
	return p
}

// Get возвращает буфер нужного размера. Содержимое не очищается: компоновщик
// всё равно перерисовывает кадр целиком.
func (p *FramePool) Get() *image.RGBA {
	return p.pool.Get().(*image.RGBA)
}

// Put возвращает буфер в пул. Буферы другого размера отбрасываются.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect != p.rect {
		return
	}
	p.pool.Put(img)
}

// Allocated is the number of buffers created so far.
func (p *FramePool) Allocated() int64 {
	return p.allocated.Load()
}
