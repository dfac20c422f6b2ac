package snake

import "github.com/hoshinonyaruko/snake-in-web/structs"

// foodArea returns the half-open rectangle food may be placed in.
func (s *State) foodArea() (x0, y0, x1, y1 int) {
	if s.settings.Food == FoodInterior {
		return 1, 1, s.settings.Width - 1, s.settings.Height - 1
	}
	return 0, 0, s.settings.Width, s.settings.Height
}

// FreeCells 可以放食物的空格数量
func (s *State) FreeCells() int {
	x0, y0, x1, y1 := s.foodArea()
	free := (x1 - x0) * (y1 - y0)
	for _, seg := range s.body {
		if seg.X >= x0 && seg.X < x1 && seg.Y >= y0 && seg.Y < y1 {
			free--
		}
	}
	return free
}

// placeFood 随机选择一个不在蛇身上的位置放食物。没有空位时返回 false。
func (s *State) placeFood() bool {
	if s.FreeCells() <= 0 {
		s.hasFood = false
		return false
	}

	x0, y0, x1, y1 := s.foodArea()
	for {
		p := structs.Position{
			X: x0 + s.rng.Intn(x1-x0),
			Y: y0 + s.rng.Intn(y1-y0),
		}
		if !s.occupied(p) {
			s.food = p
			s.hasFood = true
			return true
		}
	}
}
