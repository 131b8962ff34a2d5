package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/nerrad567/carrier-core/internal/carrier"
	"github.com/nerrad567/carrier-core/internal/device"
	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/location"
	"github.com/nerrad567/carrier-core/internal/portfolio"
)

// ErrUsage is returned for malformed or unknown commands.
var ErrUsage = errors.New("console: usage")

// Journal lists recorded deliveries.
type Journal interface {
	Recent(ctx context.Context, kind event.Kind, limit int) ([]event.JournalEntry, error)
}

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

// Shell executes console commands against a registry.
type Shell struct {
	reg      *carrier.Registry
	journal  Journal
	out      io.Writer
	commands map[string]command
}

// New creates a shell writing its output to out.
func New(reg *carrier.Registry, out io.Writer) *Shell {
	s := &Shell{reg: reg, out: out}
	s.commands = map[string]command{
		"status":    {"status", s.status},
		"sources":   {"sources <name>[,<name>...]", s.sources},
		"voltage":   {"voltage <source> <mV>", s.voltage},
		"current":   {"current <source> <mA>", s.current},
		"battery":   {"battery level <pct> | battery status <name>", s.battery},
		"error":     {"error add|remove <code>", s.errorCode},
		"memory":    {"memory <total_kb>", s.memory},
		"time":      {"time [utc <seconds> | offset <minutes> | tz <name>]", s.time},
		"portfolio": {"portfolio list | create <id> | delete <id> | read <id> <field> | write <id> <field> <value>", s.portfolio},
		"location":  {"location <lat> <lon> <alt> <timestamp> <uncertainty>", s.location},
		"velocity":  {"velocity <heading> <speed_h> <speed_v|-> <unc_h|-> <unc_v|->", s.velocity},
		"appdata":   {"appdata send <text> | appdata take", s.appdata},
		"event":     {"event <kind> [payload-json]", s.event},
		"journal":   {"journal [kind] [limit]", s.journalCmd},
	}
	return s
}

// SetJournal enables the journal command.
func (s *Shell) SetJournal(j Journal) {
	s.journal = j
}

// Execute runs one command line. Empty lines are ignored.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := fields[0], fields[1:]
	if name == "help" {
		s.help()
		return nil
	}
	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q (try 'help')", ErrUsage, name)
	}
	return cmd.run(ctx, args)
}

func (s *Shell) help() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(s.out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", s.commands[name].usage)
	}
	fmt.Fprintln(s.out, "  help")
}

func (s *Shell) usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, s.commands[name].usage)
}

func (s *Shell) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

func (s *Shell) ok() {
	fmt.Fprintln(s.out, "ok")
}

func (s *Shell) status(_ context.Context, _ []string) error {
	return s.printJSON(s.reg.Snapshot())
}

func (s *Shell) sources(_ context.Context, args []string) error {
	if len(args) != 1 {
		return s.usage("sources")
	}
	var list []device.PowerSource
	for _, name := range strings.Split(args[0], ",") {
		p, err := device.ParsePowerSource(name)
		if err != nil {
			return err
		}
		list = append(list, p)
	}
	if err := s.reg.Device().SetAvailablePowerSources(list); err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) voltage(_ context.Context, args []string) error {
	return s.measurement("voltage", args, s.reg.Device().SetVoltage)
}

func (s *Shell) current(_ context.Context, args []string) error {
	return s.measurement("current", args, s.reg.Device().SetCurrent)
}

func (s *Shell) measurement(name string, args []string, set func(device.PowerSource, int32) error) error {
	if len(args) != 2 {
		return s.usage(name)
	}
	p, err := device.ParsePowerSource(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: %s %q", ErrUsage, name, args[1])
	}
	if err := set(p, int32(v)); err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) battery(_ context.Context, args []string) error {
	if len(args) != 2 {
		return s.usage("battery")
	}
	var err error
	switch args[0] {
	case "level":
		pct, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("%w: level %q", ErrUsage, args[1])
		}
		err = s.reg.Device().SetBatteryLevel(pct)
	case "status":
		st, parseErr := device.ParseBatteryStatus(args[1])
		if parseErr != nil {
			return parseErr
		}
		err = s.reg.Device().SetBatteryStatus(st)
	default:
		return s.usage("battery")
	}
	if err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) errorCode(_ context.Context, args []string) error {
	if len(args) != 2 {
		return s.usage("error")
	}
	code, err := device.ParseErrorCode(args[1])
	if err != nil {
		return err
	}
	switch args[0] {
	case "add":
		err = s.reg.Device().AddError(code)
	case "remove":
		err = s.reg.Device().RemoveError(code)
	default:
		return s.usage("error")
	}
	if err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) memory(_ context.Context, args []string) error {
	if len(args) != 1 {
		return s.usage("memory")
	}
	kb, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: memory %q", ErrUsage, args[0])
	}
	if err := s.reg.Device().SetMemoryTotal(uint32(kb)); err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) time(_ context.Context, args []string) error {
	clock := s.reg.Device().Clock()
	if len(args) == 0 {
		return s.printJSON(device.ReadTime(clock))
	}
	if len(args) != 2 {
		return s.usage("time")
	}

	switch args[0] {
	case "utc":
		v, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: utc %q", ErrUsage, args[1])
		}
		if err := clock.SetUTCTime(int32(v)); err != nil {
			return err
		}
	case "offset":
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: offset %q", ErrUsage, args[1])
		}
		clock.SetUTCOffset(v)
	case "tz":
		clock.SetTimezone(args[1])
	default:
		return s.usage("time")
	}
	s.ok()
	return nil
}

func (s *Shell) portfolio(_ context.Context, args []string) error {
	if len(args) == 0 {
		return s.usage("portfolio")
	}
	reg := s.reg.Portfolio()

	if args[0] == "list" {
		return s.printJSON(reg.Instances())
	}
	if len(args) < 2 {
		return s.usage("portfolio")
	}
	id, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("%w: instance id %q", ErrUsage, args[1])
	}

	switch {
	case args[0] == "create" && len(args) == 2:
		err = reg.CreateInstance(uint16(id))
	case args[0] == "delete" && len(args) == 2:
		err = reg.DeleteInstance(uint16(id))
	case args[0] == "read" && len(args) == 3:
		field, parseErr := portfolio.ParseIdentity(args[2])
		if parseErr != nil {
			return parseErr
		}
		value, readErr := reg.Identity(uint16(id), field)
		if readErr != nil {
			return readErr
		}
		fmt.Fprintf(s.out, "%q\n", value)
		return nil
	case args[0] == "write" && len(args) >= 4:
		field, parseErr := portfolio.ParseIdentity(args[2])
		if parseErr != nil {
			return parseErr
		}
		err = reg.WriteIdentity(uint16(id), field, strings.Join(args[3:], " "))
	default:
		return s.usage("portfolio")
	}
	if err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) location(_ context.Context, args []string) error {
	if len(args) != 5 {
		return s.usage("location")
	}
	lat, err1 := strconv.ParseFloat(args[0], 64)
	lon, err2 := strconv.ParseFloat(args[1], 64)
	alt, err3 := parseFloat32(args[2])
	ts, err4 := strconv.ParseUint(args[3], 10, 32)
	unc, err5 := parseFloat32(args[4])
	if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := s.reg.Location().SetLocation(lat, lon, alt, uint32(ts), unc); err != nil {
		return err
	}
	s.ok()
	return nil
}

func (s *Shell) velocity(_ context.Context, args []string) error {
	if len(args) != 5 {
		return s.usage("velocity")
	}
	heading, err1 := strconv.Atoi(args[0])
	speedH, err2 := parseFloat32(args[1])
	speedV, err3 := parseFloat32(args[2])
	uncH, err4 := parseFloat32(args[3])
	uncV, err5 := parseFloat32(args[4])
	if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := s.reg.Location().SetVelocity(heading, speedH, speedV, uncH, uncV); err != nil {
		return err
	}
	s.ok()
	return nil
}

// parseFloat32 accepts "-" for an absent value.
func parseFloat32(v string) (float32, error) {
	if v == "-" {
		return location.Absent, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("use - for an absent value")
	}
	return float32(f), nil
}

func (s *Shell) appdata(_ context.Context, args []string) error {
	if len(args) == 0 {
		return s.usage("appdata")
	}
	outbox := s.reg.Outbox()

	switch args[0] {
	case "send":
		if err := outbox.Send([]byte(strings.Join(args[1:], " "))); err != nil {
			return err
		}
		s.ok()
	case "take":
		data, ok := outbox.Take()
		if !ok {
			fmt.Fprintln(s.out, "(empty)")
			return nil
		}
		fmt.Fprintf(s.out, "%q\n", data)
	default:
		return s.usage("appdata")
	}
	return nil
}

func (s *Shell) event(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.usage("event")
	}

	wire := map[string]json.RawMessage{"kind": json.RawMessage(strconv.Quote(args[0]))}
	if len(args) > 1 {
		wire["payload"] = json.RawMessage(strings.Join(args[1:], " "))
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("%w: payload: %v", ErrUsage, err)
	}

	var e event.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return err
	}
	decision, err := s.reg.Dispatcher().Dispatch(ctx, e)
	if err != nil {
		return err
	}

	st := s.reg.Dispatcher().Status()
	if e.Kind == event.KindReboot {
		fmt.Fprintf(s.out, "%s -> %s (%s)\n", e.Kind, st.State, decision)
		return nil
	}
	fmt.Fprintf(s.out, "%s -> %s\n", e.Kind, st.State)
	return nil
}

func (s *Shell) journalCmd(ctx context.Context, args []string) error {
	if s.journal == nil {
		return errors.New("console: journal disabled")
	}

	var kind event.Kind
	limit := 10
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			limit = n
			continue
		}
		k, err := event.ParseKind(arg)
		if err != nil {
			return err
		}
		kind = k
	}

	entries, err := s.journal.Recent(ctx, kind, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s  %-14s %-13s %s\n",
			e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.Kind, e.State, string(e.Payload))
	}
	return nil
}

// Config configures the interactive loop.
type Config struct {
	Prompt      string
	HistoryFile string
}

// Run reads commands from the terminal until EOF, Ctrl+C or ctx is done.
// Command errors are printed, not returned.
func (s *Shell) Run(ctx context.Context, cfg Config) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.Prompt,
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("console: readline init: %w", err)
	}
	defer rl.Close()

	stop := context.AfterFunc(ctx, func() { _ = rl.Close() })
	defer stop()

	s.out = rl.Stdout()
	fmt.Fprintln(s.out, "carrier console (type 'help' for commands)")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Execute(ctx, line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}
