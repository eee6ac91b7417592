package imaging

import (
	"image"
	"math"
)

// Contour is the outer border of one connected foreground blob, as a closed
// chain of pixel coordinates.
type Contour struct {
	Points []image.Point
}

// Area is the polygon area enclosed by the border chain (shoelace formula).
// A single-pixel or line-shaped blob has zero area.
func (c Contour) Area() float64 {
	n := len(c.Points)
	if n < 3 {
		return 0
	}
	var a float64
	prev := c.Points[n-1]
	for _, p := range c.Points {
		a += float64(prev.X*p.Y - p.X*prev.Y)
		prev = p
	}
	return math.Abs(a) * 0.5
}

// BoundingRect returns the smallest upright rectangle containing the chain.
// Width and height count pixels, so a single pixel is 1x1.
func (c Contour) BoundingRect() image.Rectangle {
	if len(c.Points) == 0 {
		return image.Rectangle{}
	}
	minX, minY := c.Points[0].X, c.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range c.Points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// neighbours in counter-clockwise order on screen (y grows downwards),
// starting east.
var neighbours = [8]image.Point{ //nolint:gochecknoglobals // lookup table
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

const (
	dirWest = 4
)

// FindExternalContours traces the outer border of every 8-connected
// foreground blob of mask (non-zero pixels) that is not nested inside a hole
// of another blob. Contours are returned in raster order of their topmost,
// leftmost pixel. The area outside the image counts as background.
func FindExternalContours(mask *Gray) []Contour {
	w, h := mask.Width, mask.Height
	if w == 0 || h == 0 {
		return nil
	}

	labels, starts := labelComponents(mask)
	outer := outerBackground(mask)

	external := make([]bool, len(starts)+1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := labels[y*w+x]
			if l == 0 || external[l] {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 ||
				outer[y*w+x-1] || outer[y*w+x+1] || outer[(y-1)*w+x] || outer[(y+1)*w+x] {
				external[l] = true
			}
		}
	}

	contours := make([]Contour, 0, len(starts))
	for i, s := range starts {
		if !external[i+1] {
			continue
		}
		contours = append(contours, traceBorder(mask, s))
	}
	return contours
}

// labelComponents assigns 8-connected labels starting at 1 and returns the
// first pixel found for each label in raster order.
func labelComponents(mask *Gray) ([]int32, []image.Point) {
	w, h := mask.Width, mask.Height
	labels := make([]int32, w*h)
	var starts []image.Point
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if mask.Pix[idx] == 0 || labels[idx] != 0 {
				continue
			}
			starts = append(starts, image.Pt(x, y))
			label := int32(len(starts))
			labels[idx] = label
			stack = append(stack[:0], idx)
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				cx, cy := cur%w, cur/w
				for _, d := range neighbours {
					nx, ny := cx+d.X, cy+d.Y
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if mask.Pix[n] != 0 && labels[n] == 0 {
						labels[n] = label
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return labels, starts
}

// outerBackground marks background pixels 4-connected to the image frame.
func outerBackground(mask *Gray) []bool {
	w, h := mask.Width, mask.Height
	outer := make([]bool, w*h)
	var stack []int
	push := func(x, y int) {
		idx := y*w + x
		if mask.Pix[idx] == 0 && !outer[idx] {
			outer[idx] = true
			stack = append(stack, idx)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy := cur%w, cur/w
		if cx > 0 {
			push(cx-1, cy)
		}
		if cx < w-1 {
			push(cx+1, cy)
		}
		if cy > 0 {
			push(cx, cy-1)
		}
		if cy < h-1 {
			push(cx, cy+1)
		}
	}
	return outer
}

// traceBorder follows the outer border of the blob whose topmost, leftmost
// pixel is start (Suzuki-Abe border following).
func traceBorder(mask *Gray, start image.Point) Contour {
	fg := func(p image.Point) bool {
		if p.X < 0 || p.Y < 0 || p.X >= mask.Width || p.Y >= mask.Height {
			return false
		}
		return mask.Pix[p.Y*mask.Width+p.X] != 0
	}

	// Search clockwise from the west neighbour for the first foreground pixel.
	s := dirWest
	found := false
	for i := 0; i < len(neighbours); i++ {
		s = (s + 7) & 7
		if fg(start.Add(neighbours[s])) {
			found = true
			break
		}
	}
	if !found {
		return Contour{Points: []image.Point{start}}
	}

	first := start.Add(neighbours[s])
	cur := start
	points := []image.Point{}
	for {
		// Counter-clockwise from the direction after the previous pixel.
		var next image.Point
		for {
			s++
			next = cur.Add(neighbours[s&7])
			if fg(next) {
				break
			}
		}
		s &= 7
		points = append(points, cur)
		if next == start && cur == first {
			break
		}
		cur = next
		s = (s + 4) & 7
	}
	return Contour{Points: points}
}
