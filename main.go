package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	jsonhandler "github.com/apex/log/handlers/json"

	"github.com/webpeel/smartclient/client"
)

const version = "1.0.0"

type args struct {
	URL          string        `arg:"positional" help:"URL to request, with or without http:// or https://"`
	MaxRedirects int           `arg:"--max-redirects" default:"10" help:"maximum number of redirects to follow"`
	NoFollow     bool          `arg:"--no-follow" help:"report the Location header without following it"`
	Timeout      time.Duration `arg:"--timeout" default:"30s" help:"idle timeout for each read (0 waits forever)"`
	Fingerprint  string        `arg:"--fingerprint" help:"ClientHello preset name or JA3 string"`
	NoProbe      bool          `arg:"--no-probe" help:"skip the HTTP/2 probe connection"`
	ConfirmH2    bool          `arg:"--confirm-h2" help:"exchange SETTINGS frames when h2 is negotiated"`
	NoBody       bool          `arg:"--no-body" help:"omit response bodies"`
	Decode       bool          `arg:"--decode" help:"remove chunked framing and content codings from bodies"`
	JSON         bool          `arg:"--json" help:"print a JSON report"`
	Verbose      bool          `arg:"-v,--verbose" help:"debug logging on stderr"`
	Serve        bool          `arg:"--serve" help:"run the local JSON service instead of a single request"`
	Port         int           `arg:"--port" default:"8787" help:"service port (0 = random)"`
	Token        string        `arg:"--token,env:SMARTCLIENT_TOKEN" help:"service authorization token"`
}

func (args) Version() string {
	return "smartclient " + version
}

func (args) Epilogue() string {
	return "Fingerprint presets: " + strings.Join(client.Fingerprints(), ", ")
}

func main() {
	var a args
	p := arg.MustParse(&a)

	if a.Serve {
		if a.Token == "" {
			p.Fail("--token is required with --serve")
		}
		log.SetHandler(jsonhandler.New(os.Stderr))
		log.SetLevel(log.InfoLevel)
		if a.Verbose {
			log.SetLevel(log.DebugLevel)
		}
		if err := serve(a.Port, a.Token); err != nil {
			log.WithError(err).Fatal("server error")
		}
		return
	}

	if a.URL == "" {
		p.Fail("URL is required")
	}
	log.SetHandler(cli.New(os.Stderr))
	log.SetLevel(log.WarnLevel)
	if a.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	os.Exit(run(context.Background(), a))
}

func run(ctx context.Context, a args) int {
	c := client.New(
		client.WithMaxRedirects(a.MaxRedirects),
		client.WithFollowRedirects(!a.NoFollow),
		client.WithIdleTimeout(a.Timeout),
		client.WithFingerprint(a.Fingerprint),
		client.WithProbe(!a.NoProbe),
		client.WithConfirmH2(a.ConfirmH2),
	)

	start := time.Now()
	res, err := c.Fetch(ctx, a.URL)
	opts := reportOptions{Body: !a.NoBody, Decode: a.Decode}
	if a.JSON {
		if werr := writeJSON(os.Stdout, res, err, time.Since(start), opts); werr != nil {
			log.WithError(werr).Error("writing report")
			return 1
		}
	} else {
		writeText(os.Stdout, res, err, opts)
	}
	if err != nil {
		return 1
	}
	return 0
}

func serve(port int, token string) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	actualPort := listener.Addr().(*net.TCPAddr).Port

	s := newServer(token, log.Log)
	srv := &http.Server{Handler: s.routes()}
	s.shutdown = srv.Shutdown

	// Print ready signal BEFORE accepting connections
	info := map[string]interface{}{
		"port":  actualPort,
		"token": token,
	}
	data, _ := json.Marshal(info)
	fmt.Println(string(data))

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
