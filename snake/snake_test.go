package snake

import (
	"math/rand"
	"testing"

	"github.com/hoshinonyaruko/snake-in-web/structs"
)

func pos(x, y int) structs.Position { return structs.Position{X: x, Y: y} }

func newTestState(t *testing.T, settings Settings, highScore int) *State {
	t.Helper()
	s, err := NewState(settings, highScore, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

// arrange 把蛇和食物摆到指定位置
func arrange(s *State, dir structs.Direction, food structs.Position, body ...structs.Position) {
	s.body = append([]structs.Position(nil), body...)
	s.current = dir
	s.pending = dir
	s.food = food
	s.hasFood = true
	s.over = false
	s.reason = structs.ReasonNone
}

// feed 把食物放在蛇头前方再走一步
func feed(s *State) Result {
	s.food = s.body[0].Translate(s.pending)
	s.hasFood = true
	return s.Step()
}

func assertInvariants(t *testing.T, s *State) {
	t.Helper()
	seen := make(map[structs.Position]bool, len(s.body))
	for _, p := range s.body {
		if seen[p] {
			t.Fatalf("duplicate snake cell %v in %v", p, s.body)
		}
		seen[p] = true
	}
	if len(s.body) < 1 {
		t.Fatalf("empty snake")
	}
	if food, ok := s.Food(); ok {
		if seen[food] {
			t.Fatalf("food %v lies on the snake %v", food, s.body)
		}
		if s.settings.Food == FoodInterior &&
			(food.X == 0 || food.Y == 0 || food.X == s.settings.Width-1 || food.Y == s.settings.Height-1) {
			t.Fatalf("food %v on the outer ring", food)
		}
	}
	if s.score < 0 || s.score%Reward != 0 {
		t.Fatalf("score %d is not a non-negative multiple of %d", s.score, Reward)
	}
	if s.highScore < s.score {
		t.Fatalf("high score %d below score %d", s.highScore, s.score)
	}
}

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"classic", ClassicSettings(10, 10), false},
		{"faces", FacesSettings(10, 10), false},
		{"narrow", ClassicSettings(3, 10), true},
		{"flat classic", ClassicSettings(4, 1), false},
		{"flat faces", FacesSettings(10, 2), true},
		{"zero min speed", Settings{Width: 10, Height: 10, StartSpeed: 100}, true},
		{"start below min", Settings{Width: 10, Height: 10, StartSpeed: 40, MinSpeed: 50}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewStateRejectsNilRand(t *testing.T) {
	if _, err := NewState(ClassicSettings(10, 10), 0, nil); err == nil {
		t.Fatal("expected an error for a nil random source")
	}
}

func TestResetCentersSnake(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)

	want := []structs.Position{pos(5, 5), pos(4, 5), pos(3, 5)}
	got := s.Body()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if s.Direction() != structs.Right || s.Pending() != structs.Right {
		t.Fatalf("expected right/right, got %s/%s", s.Direction(), s.Pending())
	}
	if s.Score() != 0 || s.Speed() != 150 || s.Over() {
		t.Fatalf("unexpected start state: score %d speed %d over %v", s.Score(), s.Speed(), s.Over())
	}
	assertInvariants(t, s)
}

func TestResetAfterGameOver(t *testing.T) {
	s := newTestState(t, FacesSettings(10, 10), 0)
	arrange(s, structs.Left, pos(5, 5), pos(0, 5), pos(1, 5), pos(2, 5))
	feedResult := s.Step()
	if feedResult.Status != Terminal {
		t.Fatalf("expected terminal, got %v", feedResult.Status)
	}

	s.score = 20
	s.speed = 90
	s.Reset()
	if s.Over() || s.Reason() != structs.ReasonNone {
		t.Fatalf("expected a running state after reset, got over=%v reason=%q", s.Over(), s.Reason())
	}
	if s.Score() != 0 || s.Speed() != 200 || len(s.Body()) != InitialLength {
		t.Fatalf("reset did not restore start values: score %d speed %d len %d", s.Score(), s.Speed(), len(s.Body()))
	}
	assertInvariants(t, s)
}

func TestStepEatsFood(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)
	arrange(s, structs.Right, pos(6, 5), pos(5, 5), pos(4, 5), pos(3, 5))

	res := s.Step()
	if res.Status != Continuing || !res.Ate || res.ScoreDelta != 10 || !res.HighScoreChanged {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []structs.Position{pos(6, 5), pos(5, 5), pos(4, 5), pos(3, 5)}
	got := s.Body()
	if len(got) != 4 {
		t.Fatalf("expected length 4, got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if s.Score() != 10 || s.HighScore() != 10 {
		t.Fatalf("expected score 10 / high 10, got %d / %d", s.Score(), s.HighScore())
	}
	food, ok := s.Food()
	if !ok {
		t.Fatal("expected new food")
	}
	for _, p := range want {
		if food == p {
			t.Fatalf("new food %v placed on the snake", food)
		}
	}
	if s.Speed() != 145 {
		t.Fatalf("expected speed 145, got %d", s.Speed())
	}
}

func TestStepMovesWithoutFood(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)
	arrange(s, structs.Right, pos(0, 0), pos(5, 5), pos(4, 5), pos(3, 5))
	s.RequestDirection(structs.Up)

	res := s.Step()
	if res.Status != Continuing || res.Ate {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []structs.Position{pos(5, 4), pos(5, 5), pos(4, 5)}
	got := s.Body()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if s.Direction() != structs.Up {
		t.Fatalf("expected current up, got %s", s.Direction())
	}
}

func TestStepWallCollision(t *testing.T) {
	cases := []struct {
		name string
		dir  structs.Direction
		body []structs.Position
	}{
		{"left", structs.Left, []structs.Position{pos(0, 5), pos(1, 5), pos(2, 5)}},
		{"right", structs.Right, []structs.Position{pos(9, 5), pos(8, 5), pos(7, 5)}},
		{"up", structs.Up, []structs.Position{pos(5, 0), pos(5, 1), pos(5, 2)}},
		{"down", structs.Down, []structs.Position{pos(5, 9), pos(5, 8), pos(5, 7)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestState(t, ClassicSettings(10, 10), 0)
			arrange(s, tc.dir, pos(4, 4), tc.body...)
			res := s.Step()
			if res.Status != Terminal || res.Reason != structs.ReasonWall {
				t.Fatalf("expected terminal wall, got %+v", res)
			}
			if !s.Over() || s.Reason() != structs.ReasonWall {
				t.Fatalf("state not marked over: %v %q", s.Over(), s.Reason())
			}
		})
	}
}

func TestStepSelfCollision(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)
	arrange(s, structs.Up, pos(0, 0), pos(5, 5), pos(5, 6), pos(4, 6), pos(4, 5))
	// 反向请求会被拒绝，这里直接写入待定方向
	s.pending = structs.Down

	res := s.Step()
	if res.Status != Terminal || res.Reason != structs.ReasonSelf {
		t.Fatalf("expected terminal self, got %+v", res)
	}
}

func TestStepOntoTailIsCollision(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)
	// 尾巴在 (4,5)，这一步之后会让出来，但依然算作碰撞
	arrange(s, structs.Up, pos(0, 0), pos(5, 5), pos(5, 6), pos(4, 6), pos(4, 5))
	if !s.RequestDirection(structs.Left) {
		t.Fatal("expected left to be accepted")
	}

	res := s.Step()
	if res.Status != Terminal || res.Reason != structs.ReasonSelf {
		t.Fatalf("expected terminal self, got %+v", res)
	}
	if len(s.Body()) != 4 {
		t.Fatalf("terminal step must not mutate the body, got %v", s.Body())
	}
}

func TestStepAfterTerminalIsNoop(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)
	arrange(s, structs.Left, pos(4, 4), pos(0, 5), pos(1, 5), pos(2, 5))
	s.Step()
	before := s.Body()

	res := s.Step()
	if res.Status != Terminal || res.Reason != structs.ReasonWall {
		t.Fatalf("expected the same terminal result, got %+v", res)
	}
	after := s.Body()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("body changed after terminal: %v -> %v", before, after)
		}
	}
}

func TestRequestDirection(t *testing.T) {
	s := newTestState(t, ClassicSettings(10, 10), 0)

	if s.RequestDirection(structs.Left) {
		t.Fatal("reverse of current direction must be ignored")
	}
	if s.Pending() != structs.Right {
		t.Fatalf("expected pending right, got %s", s.Pending())
	}
	if s.RequestDirection("sideways") {
		t.Fatal("invalid direction must be ignored")
	}
	if !s.RequestDirection(structs.Up) || s.Pending() != structs.Up {
		t.Fatalf("expected pending up, got %s", s.Pending())
	}
	// 校验只针对当前方向，所以 down 也可以覆盖 up
	if !s.RequestDirection(structs.Down) || s.Pending() != structs.Down {
		t.Fatalf("expected pending down, got %s", s.Pending())
	}
	if s.RequestDirection(structs.Left) || s.Pending() != structs.Down {
		t.Fatalf("expected pending to stay down, got %s", s.Pending())
	}
}

func TestSpeedDecreasesToFloor(t *testing.T) {
	s := newTestState(t, ClassicSettings(60, 3), 0)
	arrange(s, structs.Right, pos(0, 0), pos(5, 1), pos(4, 1), pos(3, 1))

	for i := 1; i <= 25; i++ {
		prev := s.Speed()
		res := feed(s)
		if res.Status != Continuing || !res.Ate {
			t.Fatalf("meal %d: unexpected result %+v", i, res)
		}
		want := max(prev-SpeedStep, 50)
		if s.Speed() != want {
			t.Fatalf("meal %d: expected speed %d, got %d", i, want, s.Speed())
		}
		assertInvariants(t, s)
	}
	if s.Speed() != 50 {
		t.Fatalf("expected floor 50, got %d", s.Speed())
	}
	if s.Eaten() != 25 || s.Score() != 250 {
		t.Fatalf("expected 25 meals / 250 points, got %d / %d", s.Eaten(), s.Score())
	}
}

func TestHighScoreNeverDecreases(t *testing.T) {
	s := newTestState(t, ClassicSettings(20, 5), 30)
	arrange(s, structs.Right, pos(0, 0), pos(5, 2), pos(4, 2), pos(3, 2))

	for i := 0; i < 3; i++ {
		if res := feed(s); res.HighScoreChanged {
			t.Fatalf("meal %d should not beat 30: %+v", i, res)
		}
	}
	if res := feed(s); !res.HighScoreChanged {
		t.Fatalf("expected 40 to beat 30: %+v", res)
	}
	if s.HighScore() != 40 {
		t.Fatalf("expected high score 40, got %d", s.HighScore())
	}

	s.Reset()
	if s.HighScore() != 40 {
		t.Fatalf("reset lowered the high score to %d", s.HighScore())
	}
	s.SetHighScore(10)
	if s.HighScore() != 40 {
		t.Fatalf("SetHighScore lowered the high score to %d", s.HighScore())
	}
	s.SetHighScore(90)
	if s.HighScore() != 90 {
		t.Fatalf("expected 90, got %d", s.HighScore())
	}
}

func TestWinWhenGridIsFull(t *testing.T) {
	s := newTestState(t, ClassicSettings(4, 1), 0)
	// 3 格蛇占了 4 格地图中的 3 格，食物只能在 (3,0)
	if food, ok := s.Food(); !ok || food != pos(3, 0) {
		t.Fatalf("expected food at (3,0), got %v %v", food, ok)
	}

	res := s.Step()
	if res.Status != Terminal || res.Reason != structs.ReasonWin || !res.Ate {
		t.Fatalf("expected terminal win after the last meal, got %+v", res)
	}
	if _, ok := s.Food(); ok {
		t.Fatal("expected no food on a full grid")
	}
	if s.Score() != 10 {
		t.Fatalf("expected score 10, got %d", s.Score())
	}
}

func TestResetOnFullGridIsWin(t *testing.T) {
	// 内部只有 (1,1) 和 (2,1)，开局就被蛇占满
	s := newTestState(t, FacesSettings(4, 3), 0)
	if !s.Over() || s.Reason() != structs.ReasonWin {
		t.Fatalf("expected an immediate win, got over=%v reason=%q", s.Over(), s.Reason())
	}
	if res := s.Step(); res.Status != Terminal {
		t.Fatalf("expected terminal, got %+v", res)
	}
}

func TestFreeCellsInterior(t *testing.T) {
	s := newTestState(t, FacesSettings(10, 10), 0)
	// 内部 8x8，蛇在 (5,5) (4,5) (3,5) 全部在内部
	if got := s.FreeCells(); got != 64-3 {
		t.Fatalf("expected 61 free cells, got %d", got)
	}
	arrange(s, structs.Right, pos(4, 4), pos(0, 5), pos(0, 6), pos(0, 7))
	if got := s.FreeCells(); got != 64 {
		t.Fatalf("expected ring cells not to count, got %d", got)
	}
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	dirs := []structs.Direction{structs.Up, structs.Down, structs.Left, structs.Right}
	for _, settings := range []Settings{ClassicSettings(8, 6), FacesSettings(7, 7)} {
		rng := rand.New(rand.NewSource(42))
		s, err := NewState(settings, 0, rand.New(rand.NewSource(7)))
		if err != nil {
			t.Fatalf("NewState: %v", err)
		}
		best := 0
		for game := 0; game < 50; game++ {
			s.Reset()
			for step := 0; step < 500; step++ {
				prevPending := s.Pending()
				d := dirs[rng.Intn(len(dirs))]
				if !s.RequestDirection(d) && s.Pending() != prevPending {
					t.Fatalf("rejected request changed pending %s -> %s", prevPending, s.Pending())
				}
				res := s.Step()
				assertInvariants(t, s)
				if s.HighScore() < best {
					t.Fatalf("high score dropped from %d to %d", best, s.HighScore())
				}
				best = s.HighScore()
				if res.Status == Terminal {
					break
				}
			}
		}
	}
}
