// Command client is an interactive terminal client for the bulletin-board
// protocol. Commands:
//
//	join <username>            join the Public room
//	gjoin <group> <username>   join a named group
//	post                       post to Public (prompts for subject/body)
//	gpost <group>              post to a group (prompts for subject/body)
//	users                      list Public members
//	gusers <group>             list group members
//	message <id>               fetch a Public message body
//	gmessage <group> <id>      fetch a group message body
//	leave                      leave Public
//	gleave <group>             leave a group
//	groups                     list all rooms
//	exit                       leave everything and disconnect
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/rileyboughner/bboard/internal/wire"
)

func main() {
	addr := flag.String("addr", "localhost:8083", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer conn.Close()

	go printReplies(conn)

	in := bufio.NewScanner(os.Stdin)
	for prompt(">"); in.Scan(); prompt(">") {
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		req, ok := buildRequest(in, fields)
		if !ok {
			continue
		}
		if _, err := conn.Write(wire.EncodeRequest(req)); err != nil {
			fmt.Fprintln(os.Stderr, "send:", err)
			return
		}
		if req.Op == wire.OpExit {
			return
		}
	}
}

func prompt(p string) {
	fmt.Print(p + " ")
}

func buildRequest(in *bufio.Scanner, fields []string) (wire.Request, bool) {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "join":
		if len(args) != 1 {
			return usage("join <username>")
		}
		return wire.Request{Op: wire.OpJoin, Username: args[0]}, true
	case "gjoin":
		if len(args) != 2 {
			return usage("gjoin <group> <username>")
		}
		return wire.Request{Op: wire.OpGroupJoin, GroupID: args[0], Username: args[1]}, true
	case "post":
		subject, body := promptMessage(in)
		return wire.Request{Op: wire.OpPost, Subject: subject, Body: body}, true
	case "gpost":
		if len(args) != 1 {
			return usage("gpost <group>")
		}
		subject, body := promptMessage(in)
		return wire.Request{Op: wire.OpGroupPost, GroupID: args[0], Subject: subject, Body: body}, true
	case "users":
		return wire.Request{Op: wire.OpUsers}, true
	case "gusers":
		if len(args) != 1 {
			return usage("gusers <group>")
		}
		return wire.Request{Op: wire.OpGroupUsers, GroupID: args[0]}, true
	case "message":
		if len(args) != 1 {
			return usage("message <id>")
		}
		return wire.Request{Op: wire.OpMessage, MessageID: args[0]}, true
	case "gmessage":
		if len(args) != 2 {
			return usage("gmessage <group> <id>")
		}
		return wire.Request{Op: wire.OpGroupMessage, GroupID: args[0], MessageID: args[1]}, true
	case "leave":
		return wire.Request{Op: wire.OpLeave}, true
	case "gleave":
		if len(args) != 1 {
			return usage("gleave <group>")
		}
		return wire.Request{Op: wire.OpGroupLeave, GroupID: args[0]}, true
	case "groups":
		return wire.Request{Op: wire.OpGroups}, true
	case "exit":
		return wire.Request{Op: wire.OpExit}, true
	}
	fmt.Println("command not found")
	return wire.Request{}, false
}

func usage(u string) (wire.Request, bool) {
	fmt.Println("usage:", u)
	return wire.Request{}, false
}

func promptMessage(in *bufio.Scanner) (subject, body string) {
	prompt("subject>")
	if in.Scan() {
		subject = in.Text()
	}
	prompt("body>")
	if in.Scan() {
		body = in.Text()
	}
	return subject, body
}

func printReplies(conn net.Conn) {
	var frames wire.FrameBuffer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames.Feed(buf[:n])
			for {
				frame := frames.Next()
				if frame == nil {
					break
				}
				if rep, err := wire.DecodeReply(frame); err == nil {
					printReply(rep)
				}
			}
		}
		if err != nil {
			fmt.Println("\ndisconnected")
			os.Exit(0)
		}
	}
}

func printReply(rep wire.Reply) {
	switch rep.Op {
	case wire.OpJoin:
		fmt.Printf("\n* %s joined Public\n", rep.Username)
	case wire.OpGroupJoin:
		fmt.Printf("\n* %s joined %s (%s)\n", rep.Username, rep.GroupID, rep.GroupName)
	case wire.OpPost:
		fmt.Printf("\n[%s] %s on %s: %s\n", rep.MessageID, rep.Sender, rep.Date, rep.Subject)
	case wire.OpGroupPost:
		fmt.Printf("\n[%s@%s] %s on %s: %s\n", rep.MessageID, rep.GroupID, rep.Sender, rep.Date, rep.Subject)
	case wire.OpUsers:
		fmt.Printf("\nusers: %s\n", strings.Join(rep.Users, ", "))
	case wire.OpGroupUsers:
		fmt.Printf("\nusers in %s (%s): %s\n", rep.GroupID, rep.GroupName, strings.Join(rep.Users, ", "))
	case wire.OpLeave:
		fmt.Printf("\n* %s left Public\n", rep.Username)
	case wire.OpGroupLeave:
		fmt.Printf("\n* %s left %s (%s)\n", rep.Username, rep.GroupID, rep.GroupName)
	case wire.OpMessage:
		fmt.Printf("\n%s\n", rep.Body)
	case wire.OpGroups:
		fmt.Println("\ngroups:")
		for _, g := range rep.Groups {
			fmt.Printf("  %s - %s\n", g.ID, g.Name)
		}
	case wire.OpError:
		fmt.Printf("\nerror: %s\n", rep.Text)
	}
	prompt(">")
}
