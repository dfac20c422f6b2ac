// 关于的蛇的更新
package snake

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/hoshinonyaruko/snake-in-web/structs"
)

// FoodPolicy decides which cells food may be placed on.
type FoodPolicy int

const (
	FoodAnywhere FoodPolicy = iota // whole grid
	FoodInterior                   // outermost ring excluded
)

const (
	// Reward 每吃一个食物的得分
	Reward = 10
	// SpeedStep 每吃一个食物刷新间隔减少的毫秒数
	SpeedStep = 5
	// InitialLength 开局蛇的长度
	InitialLength = 3
)

// Settings 描述一局游戏的固定参数
type Settings struct {
	Width      int
	Height     int
	StartSpeed int // 毫秒
	MinSpeed   int // 毫秒
	Food       FoodPolicy
}

// ClassicSettings 食物可以出现在任意位置，150ms 起步，最快 50ms。
func ClassicSettings(width, height int) Settings {
	return Settings{Width: width, Height: height, StartSpeed: 150, MinSpeed: 50, Food: FoodAnywhere}
}

// FacesSettings 食物不会出现在最外圈，200ms 起步，最快 70ms。
func FacesSettings(width, height int) Settings {
	return Settings{Width: width, Height: height, StartSpeed: 200, MinSpeed: 70, Food: FoodInterior}
}

// Validate 检查参数是否可以开局
func (s Settings) Validate() error {
	// 蛇从中央向左排开，需要 Width/2 >= InitialLength-1
	if s.Width/2 < InitialLength-1 || s.Height < 1 {
		return fmt.Errorf("grid %dx%d too small for a %d-cell snake", s.Width, s.Height, InitialLength)
	}
	if s.Food == FoodInterior && (s.Width < 3 || s.Height < 3) {
		return fmt.Errorf("grid %dx%d has no interior for food", s.Width, s.Height)
	}
	if s.MinSpeed <= 0 || s.StartSpeed < s.MinSpeed {
		return fmt.Errorf("invalid speeds: start %dms, min %dms", s.StartSpeed, s.MinSpeed)
	}
	return nil
}

// State 单人游戏的全部状态，只由 Step 修改。
type State struct {
	settings  Settings
	rng       *rand.Rand
	body      []structs.Position
	food      structs.Position
	hasFood   bool
	current   structs.Direction
	pending   structs.Direction
	score     int
	highScore int
	speed     int
	eaten     int
	over      bool
	reason    structs.EndReason
}

// NewState 创建一局新游戏，highScore 来自持久化。
func NewState(settings Settings, highScore int, rng *rand.Rand) (*State, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	s := &State{settings: settings, rng: rng, highScore: max(highScore, 0)}
	s.Reset()
	return s, nil
}

// Reset 蛇回到地图中央，重新放置食物，得分和速度归零。最高分保留。
func (s *State) Reset() {
	cx, cy := s.settings.Width/2, s.settings.Height/2
	s.body = make([]structs.Position, 0, InitialLength)
	for i := 0; i < InitialLength; i++ {
		s.body = append(s.body, structs.Position{X: cx - i, Y: cy})
	}
	s.current = structs.Right
	s.pending = structs.Right
	s.score = 0
	s.speed = s.settings.StartSpeed
	s.eaten = 0
	s.over = false
	s.reason = structs.ReasonNone
	if !s.placeFood() {
		s.over = true
		s.reason = structs.ReasonWin
	}
}

// RequestDirection 记录下一步的方向。与当前方向相反或不合法的请求被忽略。
func (s *State) RequestDirection(d structs.Direction) bool {
	if !d.Valid() || d == s.current.Opposite() {
		return false
	}
	s.pending = d
	return true
}

// SetHighScore 只会提高最高分
func (s *State) SetHighScore(n int) {
	if n > s.highScore {
		s.highScore = n
	}
}

func (s *State) Settings() Settings { return s.settings }

// Body returns a copy of the snake, head first.
func (s *State) Body() []structs.Position {
	out := make([]structs.Position, len(s.body))
	copy(out, s.body)
	return out
}

func (s *State) Head() structs.Position { return s.body[0] }

// Food returns the food cell; ok is false once the allowed area is full.
func (s *State) Food() (structs.Position, bool) { return s.food, s.hasFood }

func (s *State) Direction() structs.Direction { return s.current }
func (s *State) Pending() structs.Direction   { return s.pending }
func (s *State) Score() int                   { return s.score }
func (s *State) HighScore() int               { return s.highScore }
func (s *State) Speed() int                   { return s.speed }
func (s *State) Eaten() int                   { return s.eaten }
func (s *State) Over() bool                   { return s.over }
func (s *State) Reason() structs.EndReason    { return s.reason }

// Snapshot 复制出给绘图层使用的数据。Phase、Face 和 Session 由驱动器填写。
func (s *State) Snapshot() structs.Snapshot {
	return structs.Snapshot{
		Width:     s.settings.Width,
		Height:    s.settings.Height,
		Snake:     s.Body(),
		Food:      s.food,
		HasFood:   s.hasFood,
		Direction: s.current,
		Score:     s.score,
		HighScore: s.highScore,
		Speed:     s.speed,
		Eaten:     s.eaten,
		Over:      s.over,
		Reason:    s.reason,
	}
}

// occupied 检查位置是否在蛇身上
func (s *State) occupied(p structs.Position) bool {
	for _, seg := range s.body {
		if seg == p {
			return true
		}
	}
	return false
}

func (s *State) inBounds(p structs.Position) bool {
	return p.X >= 0 && p.X < s.settings.Width && p.Y >= 0 && p.Y < s.settings.Height
}
