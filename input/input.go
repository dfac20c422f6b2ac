// Package input maps key names and swipe gestures to directions.
package input

import (
	"math"
	"strings"

	"github.com/hoshinonyaruko/snake-in-web/structs"
)

var keys = map[string]structs.Direction{
	"arrowup":    structs.Up,
	"arrowdown":  structs.Down,
	"arrowleft":  structs.Left,
	"arrowright": structs.Right,
	"up":         structs.Up,
	"down":       structs.Down,
	"left":       structs.Left,
	"right":      structs.Right,
	"w":          structs.Up,
	"s":          structs.Down,
	"a":          structs.Left,
	"d":          structs.Right,
}

// FromKey 按键名转换为方向，大小写不敏感
func FromKey(name string) (structs.Direction, bool) {
	d, ok := keys[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// FromSwipe picks the dominant axis of a swipe. Ties go to the vertical axis,
// and a zero delta on the chosen axis yields no direction.
func FromSwipe(dx, dy float64) (structs.Direction, bool) {
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return "", false
	}
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return structs.Right, true
		}
		return structs.Left, true
	}
	switch {
	case dy > 0:
		return structs.Down, true
	case dy < 0:
		return structs.Up, true
	}
	return "", false
}
