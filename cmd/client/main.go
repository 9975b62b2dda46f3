// Command client runs the interactive facility-booking UDP client.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/Iyzyman/distributed-go/internal/cli"
	"github.com/Iyzyman/distributed-go/internal/netclient"
)

func main() {
	host := "127.0.0.1"
	port := 9876
	bindPort := 0

	args := os.Args[1:]
	if len(args) > 3 {
		fmt.Fprintln(os.Stderr, "usage: client [host port [bindPort]]")
		os.Exit(2)
	}
	if len(args) >= 1 {
		host = args[0]
	}
	if len(args) >= 2 {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q: %v\n", args[1], err)
			os.Exit(2)
		}
		port = p
	}
	if len(args) >= 3 {
		bp, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid bindPort %q: %v\n", args[2], err)
			os.Exit(2)
		}
		bindPort = bp
	}

	serverAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		log.Fatalf("invalid server address %s:%d: %v", host, port, err)
	}

	client, err := netclient.Dial(serverAddr, bindPort)
	if err != nil {
		log.Fatalf("failed to connect to server: %v", err)
	}
	defer client.Close()

	fmt.Printf("connected to %s\n", serverAddr)
	cli.Run(client, os.Stdin, os.Stdout)
}
