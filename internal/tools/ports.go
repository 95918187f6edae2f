package tools

import "context"

// FilesystemPort is the external collaborator a filesystem tool calls
// through. A concrete implementation lives in internal/tools/files.
type FilesystemPort interface {
	Write(ctx context.Context, path string, content []byte, append bool) error
	Read(ctx context.Context, path string) ([]byte, error)
	Edit(ctx context.Context, path string, oldText, newText string) error
}

// ShellPort is the external collaborator a shell-execution tool calls
// through. A concrete implementation lives in internal/tools/shellexec.
type ShellPort interface {
	Run(ctx context.Context, command string, args []string) (stdout, stderr string, exitCode int, err error)
}

// HTTPPort is the external collaborator an HTTP-fetch tool calls through,
// with SSRF protection applied before any request leaves the process. A
// concrete implementation lives in internal/tools/httpfetch.
type HTTPPort interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// BrowserPort is the external collaborator a browser-automation tool calls
// through. No concrete driver ships with this core — browser automation is
// an external collaborator per the system's scope — but the interface gives
// any host-supplied driver a stable seam to implement.
type BrowserPort interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Extract(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}
