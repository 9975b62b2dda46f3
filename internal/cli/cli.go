// Package cli implements the interactive client text menu: one
// tokenized command per line, per spec.md §6. Thin by design — out of
// core scope per spec.md §1 ("interactive text menus and terminal
// rendering of the client" is explicitly listed as out of scope — see
// SPEC_FULL.md). Grounded on client/cli/client.go's menu loop and
// client/utils/input.go's prompt helpers in the teacher repo, adapted
// from the teacher's numbered multi-prompt menu to spec.md's
// single-line tokenized command grammar.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Iyzyman/distributed-go/internal/netclient"
	"github.com/Iyzyman/distributed-go/internal/protocol"
)

// Run reads tokenized commands from in and writes output to out until
// "exit" or EOF.
func Run(client *netclient.Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "exit":
			return
		case "query":
			runQuery(client, args, out)
		case "book":
			runBook(client, args, out)
		case "change":
			runChange(client, args, out)
		case "monitor":
			runMonitor(client, args, out)
		case "op_a":
			runOpA(client, args, out)
		case "op_b":
			runOpB(client, args, out)
		case "set":
			runSet(client, args, out)
		default:
			fmt.Fprintf(out, "unknown command: %s\n", cmd)
		}
	}
}

func sendAndReport(client *netclient.Client, req protocol.Request, out io.Writer) (protocol.Response, bool) {
	resp, err := client.SendRequest(req)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		if _, ok := err.(*netclient.TimeoutError); ok {
			fmt.Fprintln(out, "warning: under at-least-once semantics this operation may have executed despite the timeout")
		}
		return protocol.Response{}, false
	}
	if resp.Code != protocol.OK {
		fmt.Fprintf(out, "error (%d): %s\n", resp.Code, string(resp.Payload))
		return resp, false
	}
	return resp, true
}

func runQuery(client *netclient.Client, args []string, out io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: query <name> [day...]")
		return
	}
	days := make([]uint8, 0, len(args)-1)
	for _, a := range args[1:] {
		d, err := strconv.Atoi(a)
		if err != nil || d < 0 || d > 6 {
			fmt.Fprintf(out, "invalid day index: %s\n", a)
			return
		}
		days = append(days, uint8(d))
	}
	payload, err := protocol.EncodeQueryRequest(protocol.QueryRequest{Name: args[0], Days: days})
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	req := protocol.Request{RequestID: client.NextRequestID(), OpCode: protocol.OpQuery, Payload: payload}
	resp, ok := sendAndReport(client, req, out)
	if !ok {
		return
	}
	dayIntervals, err := protocol.DecodeQueryResponse(resp.Payload)
	if err != nil {
		fmt.Fprintf(out, "malformed query response: %v\n", err)
		return
	}
	for _, d := range dayIntervals {
		fmt.Fprintf(out, "day %d:", d.Day)
		for _, iv := range d.Intervals {
			fmt.Fprintf(out, " [%d,%d)", iv[0], iv[1])
		}
		fmt.Fprintln(out)
	}
}

func runBook(client *netclient.Client, args []string, out io.Writer) {
	if len(args) != 7 {
		fmt.Fprintln(out, "usage: book <name> sD sH sM eD eH eM")
		return
	}
	nums, err := parseUint8s(args[1:])
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	payload, err := protocol.EncodeBookRequest(protocol.BookRequest{
		Name: args[0],
		StartDay: nums[0], StartHour: nums[1], StartMinute: nums[2],
		EndDay: nums[3], EndHour: nums[4], EndMinute: nums[5],
	})
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	req := protocol.Request{RequestID: client.NextRequestID(), OpCode: protocol.OpBook, Payload: payload}
	resp, ok := sendAndReport(client, req, out)
	if !ok {
		return
	}
	id, err := protocol.DecodeConfirmationID(resp.Payload)
	if err != nil {
		fmt.Fprintf(out, "malformed book response: %v\n", err)
		return
	}
	fmt.Fprintf(out, "booked, confirmation_id=%d\n", id)
}

func runChange(client *netclient.Client, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: change <id> <offset>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(out, "invalid confirmation id: %v\n", err)
		return
	}
	offset, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(out, "invalid offset: %v\n", err)
		return
	}
	payload := protocol.EncodeChangeRequest(protocol.ChangeRequest{ConfirmationID: uint32(id), OffsetMinutes: int32(offset)})
	req := protocol.Request{RequestID: client.NextRequestID(), OpCode: protocol.OpChange, Payload: payload}
	if _, ok := sendAndReport(client, req, out); ok {
		fmt.Fprintln(out, "changed")
	}
}

func runMonitor(client *netclient.Client, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: monitor <name> <seconds>")
		return
	}
	seconds, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Fprintf(out, "invalid seconds: %v\n", err)
		return
	}
	payload, err := protocol.EncodeRegisterMonitorRequest(protocol.RegisterMonitorRequest{Name: args[0], IntervalSeconds: uint32(seconds)})
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	req := protocol.Request{RequestID: client.NextRequestID(), OpCode: protocol.OpRegisterMonitor, Payload: payload}
	if _, ok := sendAndReport(client, req, out); !ok {
		return
	}
	fmt.Fprintf(out, "monitoring %s for %d seconds\n", args[0], seconds)
	client.MonitorWait(uint32(seconds), func(cb protocol.MonitorCallback) {
		fmt.Fprintf(out, "callback: facility=%s bookings=%v\n", cb.FacilityName, cb.Bookings)
	})
	fmt.Fprintln(out, "monitor window closed")
}

func runOpA(client *netclient.Client, args []string, out io.Writer) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	payload, err := protocol.EncodeOptionalName(name)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	req := protocol.Request{RequestID: client.NextRequestID(), OpCode: protocol.OpA, Payload: payload}
	if _, ok := sendAndReport(client, req, out); ok {
		fmt.Fprintln(out, "ok")
	}
}

func runOpB(client *netclient.Client, args []string, out io.Writer) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	payload, err := protocol.EncodeOptionalName(name)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	req := protocol.Request{RequestID: client.NextRequestID(), OpCode: protocol.OpB, Payload: payload}
	resp, ok := sendAndReport(client, req, out)
	if !ok {
		return
	}
	id, err := protocol.DecodeConfirmationID(resp.Payload)
	if err != nil {
		fmt.Fprintf(out, "malformed response: %v\n", err)
		return
	}
	fmt.Fprintf(out, "booked, confirmation_id=%d\n", id)
}

func runSet(client *netclient.Client, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: set timeout <ms> | set retries <n>")
		return
	}
	switch strings.ToLower(args[0]) {
	case "timeout":
		ms, err := strconv.Atoi(args[1])
		if err != nil || ms < 0 {
			fmt.Fprintln(out, "invalid timeout")
			return
		}
		client.Timeout = time.Duration(ms) * time.Millisecond
		fmt.Fprintf(out, "timeout set to %dms\n", ms)
	case "retries":
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			fmt.Fprintln(out, "invalid retries")
			return
		}
		client.MaxRetries = n
		fmt.Fprintf(out, "retries set to %d\n", n)
	default:
		fmt.Fprintln(out, "usage: set timeout <ms> | set retries <n>")
	}
}

func parseUint8s(args []string) ([]uint8, error) {
	out := make([]uint8, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric field %q: %w", a, err)
		}
		out[i] = uint8(v)
	}
	return out, nil
}
