// Package tui is the terminal front-end of the channel feed.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crmchat/internal/api"
	"github.com/crmchat/internal/channel"
	"github.com/crmchat/internal/editor"
	"github.com/crmchat/internal/feed"
	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/realtime"
)

const (
	toastTTL       = 5 * time.Second
	tickInterval   = time.Second
	requestTimeout = 30 * time.Second
	reservedLines  = 7
)

// Realtime is the live event source and typing sink.
type Realtime interface {
	Events() <-chan realtime.Event
	SendTyping(ctx context.Context, channelID string, typing bool) error
}

// Files is the attachment side of the REST client.
type Files interface {
	FetchChannelAttachments(ctx context.Context, q api.AttachmentQuery) ([]model.Attachment, error)
	DownloadAttachment(ctx context.Context, att model.Attachment, dir string) (string, error)
	ForwardAttachment(ctx context.Context, attachmentID string, targetChannelIDs []string, message string) (bool, error)
	InvalidateAttachments(ctx context.Context, channelID string)
}

type Options struct {
	NearTopPx        int
	NearBottomPx     int
	TypingStopDelay  time.Duration
	AttachmentsLimit int
	DownloadDir      string
}

type (
	storeChangedMsg struct{}
	realtimeMsg     struct{ ev realtime.Event }
	loadedMsg       struct{ err error }
	olderLoadedMsg  struct {
		added int
		err   error
	}
	submittedMsg struct {
		ok   bool
		edit bool
		err  error
	}
	intentMsg struct {
		what string
		err  error
	}
	markReadMsg struct {
		id  string
		err error
	}
	attachmentsMsg struct {
		items []model.Attachment
		err   error
	}
	tickMsg time.Time
)

type Model struct {
	store  *channel.Store
	rt     Realtime
	files  Files
	viewer model.Viewer
	opts   Options
	st     styles

	vp       viewport.Model
	scroll   *feed.Controller
	observer *feed.Observer
	composer *feed.Composer
	typing   *feed.TypingNotifier
	buf      *editor.Buffer

	snap        model.ChannelSnapshot
	items       []feed.ItemView
	spans       []feed.Span
	selected    map[string]bool
	attachments []model.Attachment
	showFiles   bool
	replyTo     *feed.ItemView

	loaded     bool
	online     bool
	toast      string
	toastUntil time.Time
	width      int
	height     int
}

func New(store *channel.Store, rt Realtime, files Files, viewer model.Viewer, opts Options) *Model {
	m := &Model{
		store:    store,
		rt:       rt,
		files:    files,
		viewer:   viewer,
		opts:     opts,
		st:       defaultStyles(),
		vp:       viewport.New(80, 20),
		observer: feed.NewObserver(viewer.ID),
		composer: feed.NewComposer(store.ChannelID(), store),
		typing:   feed.NewTypingNotifier(rt, store.ChannelID(), opts.TypingStopDelay),
		buf:      editor.NewBuffer(),
		selected: make(map[string]bool),
	}
	m.vp.KeyMap = viewport.KeyMap{}
	m.scroll = feed.NewController(feedViewport{vp: &m.vp}, linesFromPx(opts.NearTopPx), linesFromPx(opts.NearBottomPx))
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadInitial(), m.waitForChange(), m.listenRealtime(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.store.Changes()
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func (m *Model) listenRealtime() tea.Cmd {
	if m.rt == nil {
		return nil
	}
	ch := m.rt.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return realtimeMsg{ev: ev}
	}
}

func (m *Model) loadInitial() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loadedMsg{err: m.store.LoadInitial(ctx)}
	}
}

func (m *Model) loadOlder() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		added, err := m.store.LoadOlderMessages(ctx)
		return olderLoadedMsg{added: added, err: err}
	}
}

// intent runs a store call off the UI loop and reports the outcome.
func intent(what string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return intentMsg{what: what, err: fn(ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(3, msg.Height-reservedLines-strings.Count(m.buf.Text(), "\n"))
		return m, tea.Batch(m.layout()...)

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonWheelUp {
			return m, m.scrollBy(-3)
		}
		if msg.Button == tea.MouseButtonWheelDown {
			return m, m.scrollBy(3)
		}
		return m, nil

	case storeChangedMsg:
		cmds := []tea.Cmd{m.waitForChange()}
		cmds = append(cmds, m.layout()...)
		return m, tea.Batch(cmds...)

	case realtimeMsg:
		return m, tea.Batch(m.handleRealtime(msg.ev), m.listenRealtime())

	case loadedMsg:
		if msg.err != nil {
			m.setToast("could not load messages: " + msg.err.Error())
			return m, nil
		}
		m.loaded = true
		return m, nil

	case olderLoadedMsg:
		m.scroll.LoadFinished(msg.added, msg.err)
		if msg.err != nil {
			m.setToast("could not load older messages: " + msg.err.Error())
		}
		// An empty page changes nothing, so no change notification follows.
		if msg.added == 0 {
			return m, tea.Batch(m.layout()...)
		}
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.setToast(msg.err.Error())
		}
		if msg.ok && !msg.edit {
			m.typing.Sent()
			m.replyTo = nil
		}
		if m.composer.Text() == "" {
			m.buf.Reset()
		}
		return m, nil

	case intentMsg:
		if msg.err != nil {
			m.setToast(msg.what + ": " + msg.err.Error())
		} else if msg.what != "" {
			m.setToast(msg.what)
		}
		return m, nil

	case markReadMsg:
		// A failed request is offered again on the next layout or scroll.
		if msg.err != nil {
			logger.Errorf("mark read %s: %v", msg.id, msg.err)
			m.observer.Forget(msg.id)
		}
		return m, nil

	case attachmentsMsg:
		if msg.err != nil {
			m.setToast("files: " + msg.err.Error())
			return m, nil
		}
		m.attachments = msg.items
		m.showFiles = true
		return m, nil

	case tickMsg:
		m.store.ExpireTyping()
		if m.toast != "" && time.Time(msg).After(m.toastUntil) {
			m.toast = ""
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) setToast(s string) {
	m.toast = s
	m.toastUntil = time.Now().Add(toastTTL)
}

// layout rebuilds the feed from the latest snapshot, keeps the scroll anchor
// and returns mark-read commands for what became visible.
func (m *Model) layout() []tea.Cmd {
	m.snap = m.store.Snapshot()
	m.items = feed.BuildItems(&m.snap, m.viewer, m.selected)
	content, spans := renderFeed(m.items, m.vp.Width, m.st)
	m.spans = spans
	m.vp.SetContent(content)

	ids := make([]string, len(m.items))
	for i, it := range m.items {
		ids[i] = it.ID
	}
	m.scroll.AfterLayout(ids)
	m.observer.Sync(m.snap.Messages, m.snap.Receipts)
	return m.markVisible()
}

func (m *Model) markVisible() []tea.Cmd {
	var cmds []tea.Cmd
	vis := feed.LineVisibility(m.spans, m.vp.YOffset, m.vp.Height)
	for _, id := range m.observer.Observe(vis) {
		cmds = append(cmds, m.markRead(id))
	}
	return cmds
}

func (m *Model) markRead(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return markReadMsg{id: id, err: m.store.MarkMessageRead(ctx, id)}
	}
}

func (m *Model) scrollBy(n int) tea.Cmd {
	m.vp.SetYOffset(m.vp.YOffset + n)
	cmds := m.markVisible()
	if m.scroll.OnScroll(m.snap.HasMoreMessages) {
		cmds = append(cmds, m.loadOlder())
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleRealtime(ev realtime.Event) tea.Cmd {
	switch ev.Type {
	case realtime.EventConnected:
		wasOffline := !m.online
		m.online = true
		if m.loaded && wasOffline {
			return intent("", func(ctx context.Context) error {
				if err := m.store.Resync(ctx); err != nil {
					logger.Errorf("resync: %v", err)
				}
				return nil
			})
		}
		return nil
	case realtime.EventDisconnected:
		m.online = false
		m.setToast("connection lost, reconnecting…")
		return nil
	}
	if msg, ok := ev.Payload.(*model.Message); ok && len(msg.Attachments) > 0 && m.files != nil {
		m.files.InvalidateAttachments(context.Background(), m.store.ChannelID())
	}
	m.store.Apply(ev)
	return nil
}

func (m *Model) handleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "ctrl+c":
		m.typing.Close()
		return tea.Quit
	case "pgup":
		return m.scrollBy(-max(1, m.vp.Height-2))
	case "pgdown":
		return m.scrollBy(max(1, m.vp.Height-2))
	case "ctrl+up":
		return m.scrollBy(-1)
	case "ctrl+down":
		return m.scrollBy(1)
	case "esc":
		m.cancelModes()
		return nil
	case "enter":
		if m.buf.Apply(editor.Enter) == editor.Submit {
			return m.submit()
		}
	case "alt+enter", "ctrl+j":
		m.buf.Apply(editor.ShiftEnter)
	case "backspace":
		m.buf.Apply(editor.Backspace)
	case "tab":
		m.buf.Apply(editor.Tab)
	case "left":
		m.buf.MoveLeft()
	case "right":
		m.buf.MoveRight()
	case "up":
		m.buf.MoveUp()
	case "down":
		m.buf.MoveDown()
	case "home", "ctrl+a":
		m.buf.Home()
	case "end", "ctrl+e":
		m.buf.End()
	default:
		if k.Type != tea.KeyRunes && k.Type != tea.KeySpace {
			return nil
		}
		m.buf.InsertString(string(k.Runes))
		if k.Type == tea.KeySpace && len(k.Runes) == 0 {
			m.buf.InsertRune(' ')
		}
		if !k.Paste {
			m.typing.Keystroke()
		}
	}
	m.composer.SetText(m.buf.Text())
	return nil
}

func (m *Model) cancelModes() {
	if m.composer.EditTarget() != "" {
		m.composer.CancelEdit()
		m.buf.Reset()
	}
	m.composer.ReplyTo("")
	m.replyTo = nil
	m.showFiles = false
	for id := range m.selected {
		delete(m.selected, id)
	}
	m.layout()
}

func (m *Model) submit() tea.Cmd {
	text := m.buf.Text()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if IsCommand(text) {
		cmd, err := ParseCommand(text)
		m.buf.Reset()
		m.composer.SetText("")
		if err != nil {
			m.setToast(err.Error())
			return nil
		}
		return m.run(cmd)
	}
	m.composer.SetText(Unescape(text))
	edit := m.composer.EditTarget() != ""
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ok, err := m.composer.Submit(ctx)
		return submittedMsg{ok: ok, edit: edit, err: err}
	}
}

func (m *Model) item(n int) (feed.ItemView, error) {
	if n < 1 || n > len(m.items) {
		return feed.ItemView{}, fmt.Errorf("no message #%d", n)
	}
	return m.items[n-1], nil
}

func (m *Model) attachment(n int) (model.Attachment, error) {
	if n < 1 || n > len(m.attachments) {
		return model.Attachment{}, fmt.Errorf("no file #%d, run /files first", n)
	}
	return m.attachments[n-1], nil
}

// run executes a parsed slash command.
func (m *Model) run(c Command) tea.Cmd {
	switch c.Name {
	case CmdHelp:
		m.setToast(helpText())
		return nil
	case CmdCancel:
		m.cancelModes()
		return nil
	case CmdOlder:
		if m.scroll.LoadOlder(m.snap.HasMoreMessages) {
			return m.loadOlder()
		}
		if !m.snap.HasMoreMessages {
			m.setToast("no older messages")
		}
		return nil
	case CmdFiles:
		if m.files == nil {
			return nil
		}
		q := api.AttachmentQuery{ChannelID: m.store.ChannelID(), Limit: m.opts.AttachmentsLimit}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			items, err := m.files.FetchChannelAttachments(ctx, q)
			return attachmentsMsg{items: items, err: err}
		}
	case CmdDownload:
		att, err := m.attachment(c.Index)
		if err != nil {
			m.setToast(err.Error())
			return nil
		}
		dir := m.opts.DownloadDir
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			path, err := m.files.DownloadAttachment(ctx, att, dir)
			if err != nil {
				return intentMsg{what: "download", err: err}
			}
			return intentMsg{what: "saved " + path}
		}
	case CmdShare:
		att, err := m.attachment(c.Index)
		if err != nil {
			m.setToast(err.Error())
			return nil
		}
		target, note := c.Args[0], c.Rest
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			ok, err := m.files.ForwardAttachment(ctx, att.ID, []string{target}, note)
			switch {
			case err != nil:
				return intentMsg{what: "share", err: err}
			case !ok:
				return intentMsg{what: "share", err: fmt.Errorf("backend refused")}
			}
			return intentMsg{what: "shared " + att.FileName}
		}
	case CmdForward:
		ids := make([]string, 0, len(m.selected))
		for _, it := range m.items {
			if m.selected[it.ID] {
				ids = append(ids, it.ID)
			}
		}
		if len(ids) == 0 {
			m.setToast("select messages first: /select n")
			return nil
		}
		for id := range m.selected {
			delete(m.selected, id)
		}
		m.layout()
		target := c.Args[0]
		return intent(fmt.Sprintf("forwarded %d message(s)", len(ids)), func(ctx context.Context) error {
			return m.store.ForwardMessages(ctx, ids, []string{target})
		})
	}

	it, err := m.item(c.Index)
	if err != nil {
		m.setToast(err.Error())
		return nil
	}
	need := map[CommandName]feed.Action{
		CmdReply:   feed.ActionReply,
		CmdEdit:    feed.ActionEdit,
		CmdDelete:  feed.ActionDelete,
		CmdReact:   feed.ActionReply,
		CmdSelect:  feed.ActionSelect,
		CmdRetry:   feed.ActionRetry,
		CmdDiscard: feed.ActionRetry,
	}[c.Name]
	if !it.Can(need) {
		m.setToast(fmt.Sprintf("/%s is not available for #%d", c.Name, c.Index))
		return nil
	}

	switch c.Name {
	case CmdReply:
		m.composer.ReplyTo(it.ID)
		m.replyTo = &it
	case CmdEdit:
		m.composer.StartEdit(it.ID, it.Text)
		m.buf.SetText(it.Text)
		m.replyTo = nil
	case CmdSelect:
		if m.selected[it.ID] {
			delete(m.selected, it.ID)
		} else {
			m.selected[it.ID] = true
		}
		m.layout()
	case CmdDelete:
		return intent("", func(ctx context.Context) error { return m.store.DeleteMessage(ctx, it.ID) })
	case CmdReact:
		emoji := c.Args[0]
		return intent("", func(ctx context.Context) error { return m.store.ReactToMessage(ctx, it.ID, emoji) })
	case CmdRetry:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			_, err := m.store.RetryMessage(ctx, it.ID)
			return intentMsg{what: "retry", err: err}
		}
	case CmdDiscard:
		m.store.DiscardMessage(it.ID)
	}
	return nil
}

func (m *Model) View() string {
	title := "#" + m.store.ChannelID()
	if m.snap.Channel.Name != "" {
		title = m.snap.Channel.Name
	}
	conn := "online"
	if !m.online {
		conn = "offline"
	}
	header := m.st.header.Render(title) + " " + m.st.meta.Render(fmt.Sprintf("%d members · %s", len(m.snap.Members), conn))

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	if m.showFiles {
		b.WriteString(renderAttachments(m.attachments, m.st))
	} else {
		b.WriteString(m.vp.View())
	}
	b.WriteString("\n")
	b.WriteString(m.st.typing.Render(typingLine(m.snap.TypingUsers)))
	b.WriteString("\n")
	b.WriteString(m.st.toast.Render(m.toast))
	b.WriteString("\n")

	switch {
	case m.composer.EditTarget() != "":
		b.WriteString(m.st.meta.Render("editing message (esc to cancel)") + "\n")
	case m.replyTo != nil:
		b.WriteString(m.st.meta.Render(fmt.Sprintf("replying to #%d %s (esc to cancel)", m.replyTo.Index, m.replyTo.Author)) + "\n")
	}
	b.WriteString(m.st.compose.Width(max(10, m.width-4)).Render(m.composeView()))
	b.WriteString("\n")
	b.WriteString(m.st.help.Render("enter send · alt+enter newline · pgup/pgdn scroll · /help commands · ctrl+c quit"))
	return lipgloss.NewStyle().MaxHeight(max(1, m.height)).Render(b.String())
}

// composeView draws the buffer with a block cursor.
func (m *Model) composeView() string {
	lines := m.buf.Lines()
	row, col := m.buf.Cursor()
	r := []rune(lines[row])
	cursor := lipgloss.NewStyle().Reverse(true)
	if col < len(r) {
		lines[row] = string(r[:col]) + cursor.Render(string(r[col])) + string(r[col+1:])
	} else {
		lines[row] = string(r) + cursor.Render(" ")
	}
	return strings.Join(lines, "\n")
}
