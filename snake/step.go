package snake

import "github.com/hoshinonyaruko/snake-in-web/structs"

// Status 一步之后游戏是否继续
type Status int

const (
	Continuing Status = iota
	Terminal
)

func (st Status) String() string {
	if st == Terminal {
		return "terminal"
	}
	return "continuing"
}

// Result 描述一步的结果
type Result struct {
	Status           Status
	Reason           structs.EndReason
	Ate              bool
	ScoreDelta       int
	HighScoreChanged bool
}

// Step 按待定方向前进一格。
//
// 自身碰撞检查在去掉尾巴之前进行：蛇头不能走到当前尾巴所在的格子，
// 即使这一步之后尾巴会让出来。
func (s *State) Step() Result {
	if s.over {
		return Result{Status: Terminal, Reason: s.reason}
	}

	s.current = s.pending
	head := s.body[0].Translate(s.current)

	if !s.inBounds(head) {
		return s.end(structs.ReasonWall)
	}
	if s.occupied(head) {
		return s.end(structs.ReasonSelf)
	}

	// 新蛇头放在最前面
	s.body = append(s.body, structs.Position{})
	copy(s.body[1:], s.body[:len(s.body)-1])
	s.body[0] = head

	if s.hasFood && head == s.food {
		res := Result{Status: Continuing, Ate: true, ScoreDelta: Reward}
		s.score += Reward
		if s.score > s.highScore {
			s.highScore = s.score
			res.HighScoreChanged = true
		}
		s.speed = max(s.speed-SpeedStep, s.settings.MinSpeed)
		s.eaten++
		if !s.placeFood() {
			s.over = true
			s.reason = structs.ReasonWin
			res.Status = Terminal
			res.Reason = structs.ReasonWin
		}
		return res
	}

	// 没吃到食物，去掉尾巴
	s.body = s.body[:len(s.body)-1]
	return Result{Status: Continuing}
}

func (s *State) end(reason structs.EndReason) Result {
	s.over = true
	s.reason = reason
	return Result{Status: Terminal, Reason: reason}
}
