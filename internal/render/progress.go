package render

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// finishedMsg は計測対象の処理が終わったことをプログラムに知らせる。
type finishedMsg struct{}

// progressModel は「⠋ nmap_wrapper 12s」の 1 行だけを描くモデル。
// 終了後は空行を返し、端末にスピナーを残さない。
type progressModel struct {
	spinner spinner.Model
	label   string
	started time.Time
	now     func() time.Time
	done    bool
}

func newProgressModel(label string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = toolStyle
	return progressModel{spinner: s, label: label, started: time.Now(), now: time.Now}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case finishedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	elapsed := m.now().Sub(m.started).Truncate(time.Second)
	return fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, mutedStyle.Render(elapsed.String()))
}

// Spin は fn の実行中 w にスピナーと経過時間を出し、fn の戻り値を返す。
// キー入力とシグナルは奪わない（Ctrl+C は呼び出し側の context で扱う）。
// 端末でない w には呼ばないこと。
func Spin[T any](w io.Writer, label string, fn func() T) T {
	p := tea.NewProgram(newProgressModel(label),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_, _ = p.Run()
	}()

	res := fn()
	p.Send(finishedMsg{})
	<-stopped
	return res
}
