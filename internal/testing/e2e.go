package testing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	dockerImage = "chromedp/headless-shell:latest"
)

// Browser is a headless Chrome tab and the URL under which it reaches the
// test server
type Browser struct {
	Ctx context.Context
	URL string
}

// GetFreePort asks the kernel for a free open port that is ready to use
func GetFreePort() (port int, err error) {
	var a *net.TCPAddr
	if a, err = net.ResolveTCPAddr("tcp", "localhost:0"); err == nil {
		var l *net.TCPListener
		if l, err = net.ListenTCP("tcp", a); err == nil {
			defer l.Close()
			return l.Addr().(*net.TCPAddr).Port, nil
		}
	}
	return
}

// GetChromeTestURL returns the URL for Chrome (in Docker) to access the test server
// On Linux with host networking: use localhost
// On macOS/Windows: use host.docker.internal
func GetChromeTestURL(port int) string {
	portStr := fmt.Sprintf("%d", port)
	if runtime.GOOS == "linux" {
		return "http://localhost:" + portStr
	}
	return "http://host.docker.internal:" + portStr
}

// FindChrome returns a local Chrome binary, or "" when none is installed
func FindChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// StartServer serves handler on a free port on every interface, so a
// Dockerized Chrome can reach it too. The server stops with the test.
func StartServer(t *testing.T, handler http.Handler) int {
	t.Helper()

	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get a free port: %v", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		t.Fatalf("Failed to listen on port %d: %v", port, err)
	}

	server := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("Test server stopped: %v", err)
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	return port
}

// NewBrowser serves handler and opens a tab on it. A local Chrome is
// preferred; otherwise the chromedp headless-shell image runs in Docker.
// The test is skipped when neither is available.
func NewBrowser(t *testing.T, handler http.Handler) *Browser {
	t.Helper()

	port := StartServer(t, handler)

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	url := fmt.Sprintf("http://localhost:%d", port)

	if chrome := FindChrome(); chrome != "" {
		opts := []chromedp.ExecAllocatorOption{
			chromedp.ExecPath(chrome),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.DisableGPU,
			chromedp.NoSandbox,
			chromedp.Headless,
			chromedp.WindowSize(1280, 900),
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	} else {
		// With host networking the container always listens on 9222
		debugPort := 9222
		if runtime.GOOS != "linux" {
			var err error
			if debugPort, err = GetFreePort(); err != nil {
				t.Fatalf("Failed to get a debug port: %v", err)
			}
		}
		chromeCmd := StartDockerChrome(t, debugPort)
		t.Cleanup(func() { StopDockerChrome(t, chromeCmd, debugPort) })

		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), fmt.Sprintf("http://localhost:%d", debugPort))
		url = GetChromeTestURL(port)
	}

	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.Logf))
	ctx, timeoutCancel := context.WithTimeout(ctx, 30*time.Second)
	t.Cleanup(func() {
		timeoutCancel()
		cancel()
		allocCancel()
	})

	return &Browser{Ctx: ctx, URL: url}
}

// StartDockerChrome starts the chromedp headless-shell Docker container
func StartDockerChrome(t *testing.T, debugPort int) *exec.Cmd {
	t.Helper()

	if err := exec.Command("docker", "version").Run(); err != nil {
		t.Skip("Neither Chrome nor Docker available, skipping browser test")
	}

	// Pull the image if it is missing, with a timeout
	if err := exec.Command("docker", "image", "inspect", dockerImage).Run(); err != nil {
		t.Log("Pulling chromedp/headless-shell Docker image...")
		pullCmd := exec.Command("docker", "pull", dockerImage)
		if err := pullCmd.Start(); err != nil {
			t.Fatalf("Failed to start docker pull: %v", err)
		}

		pullDone := make(chan error, 1)
		go func() {
			pullDone <- pullCmd.Wait()
		}()

		select {
		case err := <-pullDone:
			if err != nil {
				t.Skipf("Failed to pull Docker image: %v", err)
			}
		case <-time.After(60 * time.Second):
			pullCmd.Process.Kill()
			t.Skip("Docker pull timed out after 60 seconds")
		}
	}

	var cmd *exec.Cmd
	containerName := fmt.Sprintf("writemusic-chrome-%d", debugPort)

	if runtime.GOOS == "linux" {
		// Host networking lets the container reach localhost
		cmd = exec.Command("docker", "run", "--rm",
			"--network", "host",
			"--name", containerName,
			dockerImage,
		)
	} else {
		cmd = exec.Command("docker", "run", "--rm",
			"-p", fmt.Sprintf("%d:9222", debugPort),
			"--name", containerName,
			"--add-host", "host.docker.internal:host-gateway",
			dockerImage,
		)
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start Chrome Docker container: %v", err)
	}

	chromeURL := fmt.Sprintf("http://localhost:%d/json/version", debugPort)
	for i := 0; i < 60; i++ { // 30 seconds
		resp, err := http.Get(chromeURL)
		if err == nil {
			resp.Body.Close()
			return cmd
		}
		time.Sleep(500 * time.Millisecond)
	}

	cmd.Process.Kill()
	t.Fatal("Chrome failed to start within 30 seconds")
	return nil
}

// StopDockerChrome stops the Chrome Docker container
func StopDockerChrome(t *testing.T, cmd *exec.Cmd, debugPort int) {
	t.Helper()

	containerName := fmt.Sprintf("writemusic-chrome-%d", debugPort)

	output, _ := exec.Command("docker", "ps", "-a", "-q", "-f", "name="+containerName).Output()
	if len(output) > 0 {
		stopCmd := exec.Command("docker", "stop", "-t", "2", containerName)
		stopDone := make(chan error, 1)
		go func() {
			stopDone <- stopCmd.Run()
		}()

		select {
		case err := <-stopDone:
			if err != nil {
				t.Logf("Warning: Failed to stop Docker container: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Logf("Warning: docker stop timed out, forcing kill")
			exec.Command("docker", "kill", containerName).Run()
		}
	}

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

// WaitForMount waits until the live page has replaced the first frame and
// its editor is visible
func WaitForMount(timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.WaitVisible(`#writemusic textarea[data-key="area"]`, chromedp.ByQuery).Do(ctx); err != nil {
			return fmt.Errorf("editor not found: %w", err)
		}

		var mounted bool
		err := chromedp.Poll(`document.querySelector('#writemusic').hasAttribute('data-mounted')`,
			&mounted, chromedp.WithPollingTimeout(timeout)).Do(ctx)
		if err != nil {
			return fmt.Errorf("timeout waiting for mount after %v: %w", timeout, err)
		}
		return nil
	})
}

// TypeText replaces the value of the textarea matching selector and fires
// the input event a user would
func TypeText(selector, text string) chromedp.Action {
	var typed bool
	return chromedp.Evaluate(`(() => {
		const area = document.querySelector(`+jsString(selector)+`);
		area.focus();
		area.value = `+jsString(text)+`;
		area.dispatchEvent(new Event("input"));
		return true;
	})()`, &typed)
}

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
