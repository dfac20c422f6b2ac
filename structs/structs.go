package structs

import "time"

// Position 描述游戏地图上的一个格子。
type Position struct {
	X int `json:"x"` // X坐标
	Y int `json:"y"` // Y坐标
}

// Direction 移动方向（"up", "down", "left", "right"）
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Opposite returns the reverse direction, or "" for an invalid one.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

// Delta returns the unit offset of one move in direction d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Translate 返回沿方向移动一格后的位置
func (p Position) Translate(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// EndReason 游戏结束的原因
type EndReason string

const (
	ReasonNone EndReason = ""
	ReasonWall EndReason = "wall" // 撞墙
	ReasonSelf EndReason = "self" // 咬到自己
	ReasonWin  EndReason = "win"  // 没有空位放食物
)

// Phase 描述驱动器的状态
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhasePaused     Phase = "paused"
	PhaseGameOver   Phase = "game_over"
)

// Snapshot 每一步之后交给绘图层的只读快照。
type Snapshot struct {
	Width     int        `json:"width"`      // 地图宽度
	Height    int        `json:"height"`     // 地图高度
	Snake     []Position `json:"snake"`      // 蛇身，蛇头在前
	Food      Position   `json:"food"`       // 食物位置
	HasFood   bool       `json:"has_food"`   // 地图满了之后没有食物
	Direction Direction  `json:"direction"`  // 当前方向
	Score     int        `json:"score"`      // 当前得分
	HighScore int        `json:"high_score"` // 最高分
	Speed     int        `json:"speed"`      // 刷新间隔，单位毫秒
	Eaten     int        `json:"eaten"`      // 本局吃掉的食物数量
	Face      int        `json:"face"`       // 食物头像序号，绘图时对头像数量取模
	Phase     Phase      `json:"phase"`      // 驱动器状态
	Over      bool       `json:"over"`       // 是否结束
	Reason    EndReason  `json:"reason"`     // 结束原因
	Session   string     `json:"session"`    // 本局标识
}

// GameRecord 一局结束后写入数据库的记录。
type GameRecord struct {
	SessionID string    `json:"session_id" db:"SessionID"`
	Variant   string    `json:"variant" db:"Variant"`
	Player    string    `json:"player" db:"Player"`
	Score     int       `json:"score" db:"Score"`
	Length    int       `json:"length" db:"Length"`
	Reason    string    `json:"reason" db:"Reason"`
	StartedAt time.Time `json:"started_at" db:"StartedAt"`
	EndedAt   time.Time `json:"ended_at" db:"EndedAt"`
}
