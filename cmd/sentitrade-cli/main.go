package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"sentitrade/pkg/sentitrade"
)

const version = "0.1.0"

func main() {
	addr := flag.String("addr", "localhost:50061", "sentitrade-server gRPC address")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sentitrade-cli [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version          Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  health           Show sentitrade-server health\n")
		fmt.Fprintf(os.Stderr, "  status <id>      Show the status of an order\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if flag.Arg(0) == "version" {
		fmt.Printf("sentitrade-cli %s\n", version)
		return
	}

	c, err := sentitrade.NewClient(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "health":
		st, err := c.Health(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(st)

	case "status":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "status requires an order id\n\n")
			flag.Usage()
			os.Exit(1)
		}
		st, err := c.CheckStatus(ctx, flag.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(out))

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
