// Package interactive provides the labctl command console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/qutech-lab/labdrivers-go/pkg/discovery"
	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
	"github.com/qutech-lab/labdrivers-go/pkg/scpi"
	"github.com/qutech-lab/labdrivers-go/pkg/station"
)

// discoverTimeout bounds the mDNS browse of the discover command.
const discoverTimeout = 5 * time.Second

// measurer is implemented by instruments that can trigger a reading,
// like a source-measure unit.
type measurer interface {
	Read() ([]float64, error)
}

// identifier is implemented by instruments that answer *IDN?.
type identifier interface {
	GetIDN() (scpi.IDN, error)
}

// Console handles interactive mode for labctl.
type Console struct {
	station *station.Station
	rl      *readline.Instance
}

// New creates a new interactive console.
func New(st *station.Station) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lab> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{station: st, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "quit" || input == "exit" || input == "q" {
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
		if input == "help" || input == "?" {
			c.printHelp()
			continue
		}

		if err := RunCommand(c.station, input, c.rl.Stdout()); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Station Commands:
  Parameters:
    list [instrument]        - List instruments, or an instrument's parameters
    get <inst> <param>       - Read a parameter
    set <inst> <param> <val> - Write a parameter

  Instruments:
    read <inst>              - Trigger a measurement (source-measure unit)
    idn <inst>               - Query instrument identification

  Station:
    discover                 - Browse the network for LXI instruments
    snapshot <file>          - Save the station parameter snapshot
    log <file>               - Print a recorded event log

  General:
    help                     - Show this help
    quit                     - Exit`)
}

// RunCommand parses and executes a single console command, writing its
// output to w. It is used by both the interactive loop and -c one-shot
// mode.
func RunCommand(st *station.Station, input string, w io.Writer) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "list", "ls":
		return cmdList(st, args, w)
	case "get", "g":
		return cmdGet(st, args, w)
	case "set", "s":
		return cmdSet(st, args, w)
	case "read", "r":
		return cmdRead(st, args, w)
	case "idn":
		return cmdIDN(st, args, w)
	case "discover":
		return cmdDiscover(w)
	case "snapshot":
		return cmdSnapshot(st, args, w)
	case "log":
		return cmdLog(args, w)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

// cmdList handles the list command.
func cmdList(st *station.Station, args []string, w io.Writer) error {
	if len(args) == 0 {
		names := st.Names()
		if len(names) == 0 {
			fmt.Fprintln(w, "No instruments")
			return nil
		}
		fmt.Fprintf(w, "Instruments (%d):\n", len(names))
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}
		return nil
	}

	inst, err := st.Get(args[0])
	if err != nil {
		return err
	}

	params := inst.Parameters()
	fmt.Fprintf(w, "%s parameters (%d):\n", inst.Name(), params.Len())
	for _, name := range params.Names() {
		p, err := params.Get(name)
		if err != nil {
			continue
		}

		access := "rw"
		if !p.Settable() {
			access = "r-"
		}
		if !p.Gettable() {
			access = "-w"
		}

		line := fmt.Sprintf("  %-28s %s", name, access)
		if value, at, ok := p.Cached(); ok {
			line += fmt.Sprintf("  %v", value)
			if p.Unit() != "" {
				line += " " + p.Unit()
			}
			line += fmt.Sprintf("  (%s)", at.Format("15:04:05"))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// cmdGet handles the get command.
func cmdGet(st *station.Station, args []string, w io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: get <instrument> <parameter>")
	}

	p, err := lookupParameter(st, args[0], args[1])
	if err != nil {
		return err
	}

	value, err := p.Get()
	if err != nil {
		return err
	}

	if p.Unit() != "" {
		fmt.Fprintf(w, "%v %s\n", value, p.Unit())
	} else {
		fmt.Fprintf(w, "%v\n", value)
	}
	return nil
}

// cmdSet handles the set command.
func cmdSet(st *station.Station, args []string, w io.Writer) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: set <instrument> <parameter> <value>")
	}

	p, err := lookupParameter(st, args[0], args[1])
	if err != nil {
		return err
	}

	if err := p.Set(parseValue(strings.Join(args[2:], " "))); err != nil {
		return err
	}

	fmt.Fprintln(w, "OK")
	return nil
}

// cmdRead handles the read command.
func cmdRead(st *station.Station, args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: read <instrument>")
	}

	inst, err := st.Get(args[0])
	if err != nil {
		return err
	}

	m, ok := inst.(measurer)
	if !ok {
		return fmt.Errorf("instrument %s cannot trigger measurements", inst.Name())
	}

	values, err := m.Read()
	if err != nil {
		return err
	}

	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	fmt.Fprintln(w, strings.Join(strs, ", "))
	return nil
}

// cmdIDN handles the idn command.
func cmdIDN(st *station.Station, args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: idn <instrument>")
	}

	inst, err := st.Get(args[0])
	if err != nil {
		return err
	}

	id, ok := inst.(identifier)
	if !ok {
		return fmt.Errorf("instrument %s does not answer *IDN?", inst.Name())
	}

	idn, err := id.GetIDN()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Vendor:   %s\n", idn.Vendor)
	fmt.Fprintf(w, "Model:    %s\n", idn.Model)
	fmt.Fprintf(w, "Serial:   %s\n", idn.Serial)
	fmt.Fprintf(w, "Firmware: %s\n", idn.Firmware)
	return nil
}

// cmdDiscover handles the discover command.
func cmdDiscover(w io.Writer) error {
	fmt.Fprintln(w, "Browsing for LXI instruments...")

	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	results, err := browser.Browse(ctx)
	if err != nil {
		return err
	}

	var found []*discovery.Instrument
	for inst := range results {
		found = append(found, inst)
	}

	if len(found) == 0 {
		fmt.Fprintln(w, "No instruments found")
		return nil
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].InstanceName < found[j].InstanceName
	})

	fmt.Fprintf(w, "Found %d instrument(s):\n", len(found))
	for _, inst := range found {
		fmt.Fprintf(w, "  %s\n", inst.InstanceName)
		fmt.Fprintf(w, "      Address: %s\n", inst.Address())
		if inst.Manufacturer != "" || inst.Model != "" {
			fmt.Fprintf(w, "      Device:  %s %s\n", inst.Manufacturer, inst.Model)
		}
		if inst.Serial != "" {
			fmt.Fprintf(w, "      Serial:  %s\n", inst.Serial)
		}
	}
	return nil
}

// cmdSnapshot handles the snapshot command.
func cmdSnapshot(st *station.Station, args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: snapshot <file>")
	}

	store := station.NewSnapshotStore(args[0])
	if err := store.Save(st.Snapshot()); err != nil {
		return err
	}

	fmt.Fprintf(w, "Snapshot written to %s\n", args[0])
	return nil
}

// cmdLog handles the log command.
func cmdLog(args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: log <file>")
	}

	reader, err := log.NewReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(w, formatEvent(event))
		count++
	}

	fmt.Fprintf(w, "%d event(s)\n", count)
	return nil
}

// formatEvent renders one event log entry as a single line.
func formatEvent(event log.Event) string {
	line := fmt.Sprintf("%s %-9s %-4s %s",
		event.Timestamp.Format("15:04:05.000"),
		event.Category, event.Direction, event.Instrument)

	switch {
	case event.Exchange != nil:
		line += " " + event.Exchange.Text
	case event.NativeCall != nil:
		line += " " + event.NativeCall.Function
		if event.NativeCall.Args != "" {
			line += "(" + event.NativeCall.Args + ")"
		}
		if event.NativeCall.Code != nil {
			line += fmt.Sprintf(" -> %d", *event.NativeCall.Code)
		}
	case event.Parameter != nil:
		op := "get"
		if event.Parameter.Set {
			op = "set"
		}
		line += fmt.Sprintf(" %s %s = %v", op, event.Parameter.Name, event.Parameter.Value)
	case event.StateChange != nil:
		line += " " + event.StateChange.NewState
		if event.StateChange.Reason != "" {
			line += " (" + event.StateChange.Reason + ")"
		}
	case event.Warning != nil:
		line += " " + event.Warning.Message
	case event.Error != nil:
		line += " " + event.Error.Message
	}
	return line
}

// lookupParameter resolves an instrument/parameter pair.
func lookupParameter(st *station.Station, instName, paramName string) (*parameter.Parameter, error) {
	inst, err := st.Get(instName)
	if err != nil {
		return nil, err
	}
	return inst.Parameters().Get(paramName)
}

// parseValue interprets a command argument as int, float, bool or string.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return strings.Trim(s, "\"'")
}
