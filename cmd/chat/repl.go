package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/common"
	"github.com/suPer8Hu/health-assistant/internal/gateway"
	"github.com/suPer8Hu/health-assistant/internal/prefs"
)

const helpText = `commands:
  /focus <body part>  focus on a body part (press enter to send the suggested question)
  /image <path>       attach an image to the next message
  /lang <code>        switch language (en es fr de hi ar zh ja ta)
  /name <name>        rename the assistant
  /history            list saved conversations
  /load <n|id>        continue a saved conversation
  /delete <n|id>      delete a saved conversation
  /new                start a new conversation
  /quit               exit`

var errQuit = errors.New("quit")

type repl struct {
	gw      chat.Gateway
	store   chat.Store
	prefs   prefs.Store
	profile string
	logger  *zap.Logger
	out     io.Writer

	session  *chat.Session
	settings prefs.Preferences
	prefill  string
	image    string
	readFile func(string) ([]byte, error)
}

func newREPL(ctx context.Context, gw chat.Gateway, store chat.Store, ps prefs.Store, profile string, out io.Writer, logger *zap.Logger) (*repl, error) {
	settings, err := ps.Get(ctx, profile)
	if err != nil {
		return nil, err
	}
	r := &repl{
		gw:       gw,
		store:    store,
		prefs:    ps,
		profile:  profile,
		logger:   logger,
		out:      out,
		settings: settings,
		readFile: os.ReadFile,
	}
	if err := r.newSession(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *repl) newSession() error {
	id, err := common.NewULID()
	if err != nil {
		return err
	}
	r.session = chat.NewSession(id, r.gw, r.store, chat.WithLanguage(r.settings.Language), chat.WithLogger(r.logger))
	r.prefill, r.image = "", ""
	r.printMessages(r.session.Messages())
	return nil
}

// run reads lines until EOF or /quit.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	r.prompt()
	for sc.Scan() {
		if err := r.handle(ctx, sc.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		r.prompt()
	}
	return sc.Err()
}

func (r *repl) prompt() {
	fmt.Fprint(r.out, "> ")
}

func (r *repl) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return r.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/focus":
		r.prefill = r.session.SelectFocus(arg)
		if r.prefill == "" {
			fmt.Fprintln(r.out, "focus cleared")
			return nil
		}
		fmt.Fprintf(r.out, "press enter to ask: %s\n", r.prefill)
	case "/image":
		data, err := r.readFile(arg)
		if err != nil {
			return err
		}
		uri, err := gateway.EncodeImage(data)
		if err != nil {
			return err
		}
		r.image = uri
		fmt.Fprintln(r.out, "image attached to your next message")
	case "/lang":
		return r.updatePrefs(ctx, prefs.Update{Language: &arg})
	case "/name":
		return r.updatePrefs(ctx, prefs.Update{BotName: &arg})
	case "/history":
		return r.listHistory(ctx)
	case "/load":
		return r.load(ctx, arg)
	case "/delete":
		return r.delete(ctx, arg)
	case "/new":
		return r.newSession()
	default:
		return fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string) error {
	if text == "" && r.prefill != "" {
		text = r.prefill
	}
	reply, err := r.session.StartTurn(ctx, chat.TurnInput{Text: text, Image: r.image})
	if errors.Is(err, chat.ErrEmptyTurn) {
		return nil
	}
	if err != nil {
		var ge *chat.GatewayError
		if errors.As(err, &ge) {
			return fmt.Errorf("could not reach the assistant, please try again (%s)", ge.Error())
		}
		return err
	}
	r.prefill, r.image = "", ""
	r.printMessages([]chat.Message{reply})
	return nil
}

func (r *repl) updatePrefs(ctx context.Context, u prefs.Update) error {
	next, err := r.settings.Apply(u)
	if err != nil {
		return err
	}
	if err := r.prefs.Put(ctx, r.profile, next); err != nil {
		return err
	}
	r.settings = next
	r.session.SetLanguage(next.Language)
	fmt.Fprintf(r.out, "%s will answer in %s\n", next.BotName, next.Language)
	return nil
}

func (r *repl) listHistory(ctx context.Context) error {
	items, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(r.out, "no chat history yet")
		return nil
	}
	for i, c := range items {
		fmt.Fprintf(r.out, "%2d. %s  %s\n", i+1, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Preview)
	}
	return nil
}

// resolve accepts a 1-based index into the history list or a conversation id.
func (r *repl) resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("which conversation? give its number or id")
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}
	items, err := r.store.List(ctx)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(items) {
		return "", fmt.Errorf("no conversation #%d", n)
	}
	return items[n-1].ID, nil
}

func (r *repl) load(ctx context.Context, ref string) error {
	id, err := r.resolve(ctx, ref)
	if err != nil {
		return err
	}
	conv, err := r.store.Load(ctx, id)
	if err != nil {
		return err
	}
	r.session = chat.ResumeSession(conv, r.gw, r.store, chat.WithLanguage(r.settings.Language), chat.WithLogger(r.logger))
	r.prefill, r.image = "", ""
	r.printMessages(r.session.Messages())
	return nil
}

func (r *repl) delete(ctx context.Context, ref string) error {
	id, err := r.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "deleted")
	return nil
}

func (r *repl) printMessages(msgs []chat.Message) {
	for _, m := range msgs {
		who := "you"
		if m.Role == chat.RoleAssistant {
			who = r.settings.BotName
		}
		fmt.Fprintf(r.out, "[%s]\n%s\n\n", who, m.Content)
	}
}
