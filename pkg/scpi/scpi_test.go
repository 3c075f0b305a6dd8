package scpi

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// echoInstrument serves a minimal SCPI endpoint on a loopback socket.
// Queries (trailing '?') are answered, writes are swallowed.
func echoInstrument(t *testing.T, replies map[string]string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					cmd := scanner.Text()
					if !strings.HasSuffix(cmd, "?") {
						continue
					}
					reply, ok := replies[cmd]
					if !ok {
						reply = "0"
					}
					fmt.Fprintf(conn, "%s\r\n", reply)
				}
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func TestTCPTransportAskWrite(t *testing.T) {
	addr := echoInstrument(t, map[string]string{
		"*IDN?": "KEITHLEY INSTRUMENTS INC.,MODEL 6430,1234567,C33",
		":NPLC?": "+1.000000E+01",
	})

	tr, err := DialTCP(TCPConfig{Address: addr})
	require.NoError(t, err)
	defer tr.Close()

	reply, err := tr.Ask("*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "KEITHLEY INSTRUMENTS INC.,MODEL 6430,1234567,C33", reply)

	// CRLF must be stripped.
	reply, err = tr.Ask(":NPLC?")
	require.NoError(t, err)
	assert.Equal(t, "+1.000000E+01", reply)

	require.NoError(t, tr.Write("*RST"))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close(), "Close must be idempotent")
	assert.ErrorIs(t, tr.Write("*RST"), ErrClosed)
}

func TestTCPTransportRejectsEmptyCommand(t *testing.T) {
	addr := echoInstrument(t, nil)

	tr, err := DialTCP(TCPConfig{Address: addr})
	require.NoError(t, err)
	defer tr.Close()

	assert.ErrorIs(t, tr.Write(""), ErrEmptyCommand)
}

func TestSimTransportRecordsHistory(t *testing.T) {
	tr := NewSimTransport(func(cmd string) (string, error) {
		if cmd == "OUTP?" {
			return "1", nil
		}
		return "", errors.New("unknown query")
	})

	reply, err := tr.Ask("OUTP?")
	require.NoError(t, err)
	assert.Equal(t, "1", reply)

	require.NoError(t, tr.Write("OUTP 0"))
	assert.Equal(t, []string{"OUTP?", "OUTP 0"}, tr.History())

	tr.Reset()
	assert.Empty(t, tr.History())
}

func TestReplyParsers(t *testing.T) {
	tests := []struct {
		name   string
		parser ReplyParser
		reply  string
		want   any
	}{
		{"float", ParseFloat, "+1.050000E-01", 0.105},
		{"float trimmed", ParseFloat, " 1.5 ", 1.5},
		{"int from exponent", ParseInt, "+7.000000E+00", 7},
		{"string", ParseString, " VOLT ", "VOLT"},
		{"quoted string", ParseQuotedString, `"VOLT:DC"`, "VOLT:DC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplyParserMalformed(t *testing.T) {
	// Malformed numeric replies propagate as conversion errors.
	_, err := ParseFloat("garbage")
	require.Error(t, err)
}

func TestInstrumentCommandParameter(t *testing.T) {
	sim := NewSimTransport(func(cmd string) (string, error) {
		switch cmd {
		case "SOUR:VOLT:LEV?":
			return "+2.000000E+00", nil
		default:
			return "", fmt.Errorf("unknown query %q", cmd)
		}
	})

	inst := NewInstrument("smu", sim)
	p := inst.MustAddCommand(Command{
		Name:   "source_voltage",
		Unit:   "V",
		GetCmd: "SOUR:VOLT:LEV?",
		SetCmd: "SOUR:VOLT:LEV %v",
		Parser: ParseFloat,
		Vals:   parameter.Numbers(-210, 210),
	})

	v, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	require.NoError(t, p.Set(1.5))
	assert.Contains(t, sim.History(), "SOUR:VOLT:LEV 1.5")
}

func TestInstrumentSetValidatesBeforeTransport(t *testing.T) {
	sim := NewSimTransport(nil)
	inst := NewInstrument("smu", sim)
	p := inst.MustAddCommand(Command{
		Name:   "nplc",
		SetCmd: ":NPLC %v",
		Vals:   parameter.Numbers(0.01, 10),
	})

	err := p.Set(100.0)
	require.ErrorIs(t, err, parameter.ErrOutOfRange)
	assert.Empty(t, sim.History(), "out-of-range set must not reach the transport")
}

func TestInstrumentOnOffMapping(t *testing.T) {
	sim := NewSimTransport(func(cmd string) (string, error) {
		return "0", nil
	})
	inst := NewInstrument("smu", sim)
	p := inst.MustAddCommand(Command{
		Name:    "output_enabled",
		GetCmd:  "OUTP?",
		SetCmd:  "OUTP %v",
		Vals:    parameter.Bool(),
		Mapping: parameter.OnOffMapping("1", "0"),
	})

	v, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, false, v)

	require.NoError(t, p.Set(true))
	assert.Contains(t, sim.History(), "OUTP 1")
}

func TestInstrumentIDN(t *testing.T) {
	sim := NewSimTransport(func(cmd string) (string, error) {
		require.Equal(t, "*IDN?", cmd)
		return "KEITHLEY INSTRUMENTS INC.,MODEL 6430,1234567,C33 Mar 31 2015", nil
	})
	inst := NewInstrument("smu", sim)

	idn, err := inst.GetIDN()
	require.NoError(t, err)
	assert.Equal(t, IDN{
		Vendor:   "KEITHLEY INSTRUMENTS INC.",
		Model:    "MODEL 6430",
		Serial:   "1234567",
		Firmware: "C33 Mar 31 2015",
	}, idn)
}

func TestInstrumentEventLogging(t *testing.T) {
	var captured capturingLogger

	sim := NewSimTransport(func(cmd string) (string, error) { return "5", nil })
	inst := NewInstrument("smu", sim,
		WithLogger(&captured),
		WithAddress("192.0.2.10:5025"),
	)

	_, err := inst.Ask(":NPLC?")
	require.NoError(t, err)

	require.Len(t, captured.events, 2)
	assert.Equal(t, log.CategoryCommand, captured.events[0].Category)
	assert.Equal(t, log.DirectionOut, captured.events[0].Direction)
	assert.Equal(t, ":NPLC?", captured.events[0].Exchange.Text)
	assert.Equal(t, log.CategoryReply, captured.events[1].Category)
	assert.Equal(t, "5", captured.events[1].Exchange.Text)
	assert.Equal(t, "smu", captured.events[0].Instrument)
	assert.Equal(t, "192.0.2.10:5025", captured.events[0].Address)
	assert.NotEmpty(t, captured.events[0].HandleID)
}

type capturingLogger struct {
	events []log.Event
}

func (c *capturingLogger) Log(event log.Event) {
	c.events = append(c.events, event)
}
