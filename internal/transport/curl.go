package transport

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Curl executes requests by shelling out to a curl binary. It exists as
// the fallback backend for environments where the native client is
// ruled out; both backends present identical semantics to callers.
type Curl struct {
	binary string
	token  string
}

// NewCurl constructs the curl backend, failing when no curl binary is
// on PATH.
func NewCurl(token string) (*Curl, error) {
	binary, err := exec.LookPath("curl")
	if err != nil {
		return nil, fmt.Errorf("curl backend unavailable: %w", err)
	}
	return &Curl{binary: binary, token: token}, nil
}

func (c *Curl) Name() string { return "curl" }

func (c *Curl) Do(ctx context.Context, req Request) (Response, error) {
	out, err := os.CreateTemp("", "epublift-curl-*")
	if err != nil {
		return Response{}, fmt.Errorf("create curl output file: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()
	defer os.Remove(outPath)

	args := []string{
		"-sS",
		"-u", c.token + ":",
		"-A", UserAgent,
		"-X", req.Method,
		"-o", outPath,
		"-w", "%{http_code}",
	}
	if req.ContentType != "" {
		args = append(args, "-H", "Content-Type: "+req.ContentType)
	}

	if len(req.Body) > 0 {
		in, err := os.CreateTemp("", "epublift-curl-body-*")
		if err != nil {
			return Response{}, fmt.Errorf("create curl body file: %w", err)
		}
		inPath := in.Name()
		defer os.Remove(inPath)
		if _, err := in.Write(req.Body); err != nil {
			_ = in.Close()
			return Response{}, fmt.Errorf("write curl body file: %w", err)
		}
		if err := in.Close(); err != nil {
			return Response{}, fmt.Errorf("close curl body file: %w", err)
		}
		args = append(args, "--data-binary", "@"+inPath)
	}
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Response{}, fmt.Errorf("curl %s %s: %s", req.Method, req.URL, detail)
	}

	code, err := strconv.Atoi(strings.TrimSpace(string(stdout)))
	if err != nil {
		return Response{}, fmt.Errorf("curl returned unparseable status %q", strings.TrimSpace(string(stdout)))
	}

	body, err := os.ReadFile(outPath)
	if err != nil {
		return Response{}, fmt.Errorf("read curl output: %w", err)
	}
	return Response{StatusCode: code, Body: body}, nil
}
