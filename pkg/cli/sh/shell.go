// Package sh is the interactive bench shell talking to the tracker devices.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tracker.go/pkg/config"
	fx "github.com/robotalks/tracker.go/pkg/framework"
	"github.com/robotalks/tracker.go/pkg/tracker"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *config.Config
	// Open builds the tracker, tracker.New by default.
	Open    func(*config.Config) (*tracker.Tracker, error)
	Session *Session
}

// Session is a tracker with its ports running, the odometer loop doesn't
// run so devices can be driven by hand.
type Session struct {
	Ctx     context.Context
	Cancel  func()
	Tracker *tracker.Tracker
	Runner  *fx.Runner
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
	openPrompt   = "tracker > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requiring open ports.
// Ports are opened on demand.
func MustBeOpen(fn func(c *ishell.Context, t *tracker.Tracker)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Session == nil {
			if err := s.OpenSession(); err != nil {
				c.Err(err)
				return
			}
		}
		fn(c, s.Session.Tracker)
	}
}

// OpenSession opens the ports.
func (s *Shell) OpenSession() error {
	open := s.Open
	if open == nil {
		open = tracker.New
	}
	t, err := open(s.Config)
	if err != nil {
		return err
	}
	sess := &Session{Tracker: t}
	sess.Ctx, sess.Cancel = context.WithCancel(context.Background())
	sess.Runner = t.Start(sess.Ctx)
	s.CloseSession()
	s.Session = sess
	s.Shell.SetPrompt(openPrompt)
	return nil
}

// CloseSession stops the ports.
func (s *Shell) CloseSession() {
	if sess := s.Session; sess != nil {
		sess.Cancel()
		sess.Runner.Wait()
		sess.Tracker.Close()
		s.Session = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Context returns the context of the session.
func (s *Shell) Context() context.Context {
	if s.Session != nil {
		return s.Session.Ctx
	}
	return context.Background()
}

// Print prints v as JSON with -json, otherwise in text.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.CloseSession()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens the ports.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "open the configured ports",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.OpenSession(); err != nil {
				c.Err(err)
				return
			}
			for _, ch := range s.Session.Tracker.Channels {
				c.Printf("%s: open\n", ch.Name())
			}
		},
	}

	// CloseCmd closes the ports.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "close the ports",
		Func: func(c *ishell.Context) {
			ShellFrom(c).CloseSession()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main(conf *config.Config) {
	New(conf).Run(flag.Args()...)
}
