// Package term draws the game in a terminal with termbox.
package term

import (
	"context"
	"fmt"

	"github.com/hoshinonyaruko/snake-in-web/engine"
	"github.com/hoshinonyaruko/snake-in-web/input"
	"github.com/hoshinonyaruko/snake-in-web/structs"
	"github.com/nsf/termbox-go"
)

// Action is what a key press asks the game to do.
type Action int

const (
	ActionNone Action = iota
	ActionDirection
	ActionToggle
	ActionRestart
	ActionQuit
)

// Cell 一个终端字符
type Cell struct {
	Ch rune
	Fg termbox.Attribute
	Bg termbox.Attribute
}

// Frame is a screen worth of cells, indexed [y][x].
type Frame [][]Cell

const (
	wallRune = '#'
	headRune = '@'
	bodyRune = 'o'
	foodRune = '*'
)

// KeyAction maps a termbox event to an action.
func KeyAction(ev termbox.Event) (Action, structs.Direction) {
	if ev.Type != termbox.EventKey {
		return ActionNone, ""
	}
	switch ev.Key {
	case termbox.KeyArrowUp:
		return ActionDirection, structs.Up
	case termbox.KeyArrowDown:
		return ActionDirection, structs.Down
	case termbox.KeyArrowLeft:
		return ActionDirection, structs.Left
	case termbox.KeyArrowRight:
		return ActionDirection, structs.Right
	case termbox.KeySpace:
		return ActionToggle, ""
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return ActionQuit, ""
	}
	switch ev.Ch {
	case 'q', 'Q':
		return ActionQuit, ""
	case 'r', 'R':
		return ActionRestart, ""
	case ' ':
		return ActionToggle, ""
	}
	if ev.Ch != 0 {
		if d, ok := input.FromKey(string(ev.Ch)); ok {
			return ActionDirection, d
		}
	}
	return ActionNone, ""
}

// BuildFrame lays out the board with a one cell wall and two status lines below it.
func BuildFrame(snap structs.Snapshot) Frame {
	cols := snap.Width + 2
	frame := make(Frame, snap.Height+4)
	for y := range frame {
		frame[y] = make([]Cell, cols)
		for x := range frame[y] {
			frame[y][x] = Cell{Ch: ' ', Fg: termbox.ColorDefault, Bg: termbox.ColorDefault}
		}
	}

	wall := Cell{Ch: wallRune, Fg: termbox.ColorWhite, Bg: termbox.ColorDefault}
	for x := 0; x < cols; x++ {
		frame[0][x] = wall
		frame[snap.Height+1][x] = wall
	}
	for y := 1; y <= snap.Height; y++ {
		frame[y][0] = wall
		frame[y][cols-1] = wall
	}

	if snap.HasFood {
		frame[snap.Food.Y+1][snap.Food.X+1] = Cell{Ch: foodRune, Fg: termbox.ColorRed | termbox.AttrBold, Bg: termbox.ColorDefault}
	}
	// 倒序画，保证蛇头在最上层
	for i := len(snap.Snake) - 1; i >= 0; i-- {
		p := snap.Snake[i]
		c := Cell{Ch: bodyRune, Fg: termbox.ColorBlue, Bg: termbox.ColorDefault}
		if i == 0 {
			c = Cell{Ch: headRune, Fg: termbox.ColorYellow | termbox.AttrBold, Bg: termbox.ColorDefault}
		}
		frame[p.Y+1][p.X+1] = c
	}

	frame.text(snap.Height+2, fmt.Sprintf("Score: %d  Best: %d  Speed: %dms", snap.Score, snap.HighScore, snap.Speed), termbox.ColorWhite)
	frame.text(snap.Height+3, statusLine(snap), termbox.ColorCyan)
	return frame
}

func statusLine(snap structs.Snapshot) string {
	switch snap.Phase {
	case structs.PhaseNotStarted:
		return "space: start  q: quit"
	case structs.PhasePaused:
		return "PAUSED  space: resume"
	case structs.PhaseGameOver:
		if snap.Reason == structs.ReasonWin {
			return "YOU WIN  r: restart"
		}
		return fmt.Sprintf("GAME OVER (%s)  r: restart", snap.Reason)
	}
	return "arrows: move  space: pause"
}

// text 写一行文字，超出宽度的部分会被追加到行尾
func (f Frame) text(y int, s string, fg termbox.Attribute) {
	x := 0
	for _, r := range s {
		c := Cell{Ch: r, Fg: fg, Bg: termbox.ColorDefault}
		if x < len(f[y]) {
			f[y][x] = c
		} else {
			f[y] = append(f[y], c)
		}
		x++
	}
}

// String renders the frame without colors.
func (f Frame) String() string {
	var out []rune
	for _, row := range f {
		for _, c := range row {
			out = append(out, c.Ch)
		}
		out = append(out, '\n')
	}
	return string(out)
}

// UI runs the termbox loop for one engine.
type UI struct {
	eng    *engine.Engine
	frames chan structs.Snapshot
}

func New(eng *engine.Engine) *UI {
	return &UI{eng: eng, frames: make(chan structs.Snapshot, 1)}
}

// Present implements engine.Presenter. Only the newest snapshot is kept.
func (u *UI) Present(snap structs.Snapshot) {
	for {
		select {
		case u.frames <- snap:
			return
		default:
		}
		select {
		case <-u.frames:
		default:
		}
	}
}

// Run blocks until the player quits or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("termbox init: %w", err)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	events := make(chan termbox.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := termbox.PollEvent()
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	last := u.eng.Snapshot()
	if err := draw(last); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-u.frames:
			last = snap
			if err := draw(last); err != nil {
				return err
			}
		case ev := <-events:
			switch ev.Type {
			case termbox.EventError:
				return fmt.Errorf("termbox: %w", ev.Err)
			case termbox.EventResize:
				if err := draw(last); err != nil {
					return err
				}
				continue
			}
			action, d := KeyAction(ev)
			switch action {
			case ActionQuit:
				return nil
			case ActionDirection:
				u.eng.RequestDirection(d)
			case ActionToggle:
				u.eng.Toggle()
			case ActionRestart:
				u.eng.Restart()
			}
		}
	}
}

func draw(snap structs.Snapshot) error {
	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return err
	}
	for y, row := range BuildFrame(snap) {
		for x, c := range row {
			termbox.SetCell(x, y, c.Ch, c.Fg, c.Bg)
		}
	}
	return termbox.Flush()
}
