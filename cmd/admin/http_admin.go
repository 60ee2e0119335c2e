package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// debugCmd calls the loopback debug endpoints of a running server:
// state | pause | resume | step | connections | metrics | zone <id> | entity <id>.
func debugCmd(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	baseURL := fs.String("url", envCfg.DebugURL, "server base url")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin debug [-url U] state|pause|resume|step|connections|metrics|zone <id>|entity <id>")
		os.Exit(2)
	}
	op := fs.Arg(0)

	method, path := http.MethodGet, ""
	switch op {
	case "pause", "resume", "step":
		method, path = http.MethodPost, op
	case "state", "connections", "metrics":
		path = op
	case "zone", "entity":
		if fs.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s needs an id\n", op)
			os.Exit(2)
		}
		path = op + "s/" + url.PathEscape(fs.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "unknown op %q\n", op)
		os.Exit(2)
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/debug/v1/" + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fatal("request", err)
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fatal("request", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Print(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
