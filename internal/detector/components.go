package detector

import "image"

// component is one 4-connected dark region of the binary plane.
type component struct {
	minX, minY, maxX, maxY int
	pixelCount             int
	sumX, sumY             int64
}

func (c *component) width() int  { return c.maxX - c.minX + 1 }
func (c *component) height() int { return c.maxY - c.minY + 1 }

func (c *component) centerX() float64 {
	return float64(c.sumX) / float64(c.pixelCount)
}

func (c *component) centerY() float64 {
	return float64(c.sumY) / float64(c.pixelCount)
}

func (c *component) aspect() float64 {
	h := c.height()
	if h == 0 {
		return 0
	}
	return float64(c.width()) / float64(h)
}

// findComponents labels all 4-connected dark regions (pixel value 0) with
// an iterative flood fill. Visits every pixel once.
func findComponents(binary *image.Gray) []component {
	bounds := binary.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	visited := make([]bool, width*height)
	var comps []component
	stack := make([]image.Point, 0, 256)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if visited[idx] || binary.Pix[y*binary.Stride+x] != 0 {
				continue
			}

			comp := component{minX: x, minY: y, maxX: x, maxY: y}
			stack = append(stack[:0], image.Point{X: x, Y: y})
			visited[idx] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				comp.pixelCount++
				comp.sumX += int64(p.X)
				comp.sumY += int64(p.Y)
				if p.X < comp.minX {
					comp.minX = p.X
				}
				if p.X > comp.maxX {
					comp.maxX = p.X
				}
				if p.Y < comp.minY {
					comp.minY = p.Y
				}
				if p.Y > comp.maxY {
					comp.maxY = p.Y
				}

				neighbors := [4]image.Point{
					{X: p.X - 1, Y: p.Y},
					{X: p.X + 1, Y: p.Y},
					{X: p.X, Y: p.Y - 1},
					{X: p.X, Y: p.Y + 1},
				}
				for _, nb := range neighbors {
					if nb.X < 0 || nb.X >= width || nb.Y < 0 || nb.Y >= height {
						continue
					}
					nIdx := nb.Y*width + nb.X
					if visited[nIdx] || binary.Pix[nb.Y*binary.Stride+nb.X] != 0 {
						continue
					}
					visited[nIdx] = true
					stack = append(stack, nb)
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps
}
