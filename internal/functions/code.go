package functions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/tools"
)

const maxCodeOutput = 64 << 10

// CodeRunner executes a Python program and returns its standard output.
type CodeRunner interface {
	Run(ctx context.Context, code string) (string, error)
}

// LocalPython runs code with a host interpreter.
type LocalPython struct {
	Interpreter string
}

func (p LocalPython) Run(ctx context.Context, code string) (string, error) {
	dir, err := os.MkdirTemp("", "benchagent-code-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	script := filepath.Join(dir, "main.py")
	if err := os.WriteFile(script, []byte(code), 0o600); err != nil {
		return "", err
	}

	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, interpreter, script)
	cmd.Dir = dir
	cmd.Stdout = &limitedWriter{w: &stdout, n: maxCodeOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, n: maxCodeOutput}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("execution aborted: %w", ctx.Err())
		}
		return "", fmt.Errorf("error executing code: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// DockerPython runs code in a throwaway container without network access.
type DockerPython struct {
	client *client.Client
	image  string
}

func NewDockerPython(image string) (*DockerPython, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	if image == "" {
		image = "python:3.12-slim"
	}
	return &DockerPython{client: cli, image: image}, nil
}

func (d *DockerPython) Close() error {
	return d.client.Close()
}

func (d *DockerPython) Run(ctx context.Context, code string) (string, error) {
	dir, err := os.MkdirTemp("", "benchagent-code-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(code), 0o644); err != nil {
		return "", err
	}

	created, err := d.client.ContainerCreate(ctx,
		&container.Config{
			Image:           d.image,
			Cmd:             []string{"python", "/workspace/main.py"},
			WorkingDir:      "/workspace",
			NetworkDisabled: true,
		},
		&container.HostConfig{
			Binds:       []string{dir + ":/workspace:ro"},
			NetworkMode: "none",
		},
		nil, nil, "benchagent-code-"+uuid.New().String()[:8],
	)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	defer func() {
		rmCtx := context.WithoutCancel(ctx)
		if err := d.client.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true}); err != nil {
			log.Warnf("execute_code: remove container %s: %v", created.ID, err)
		}
	}()

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := d.client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("wait container: %w", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	logs, err := d.client.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", fmt.Errorf("container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&limitedWriter{w: &stdout, n: maxCodeOutput}, &limitedWriter{w: &stderr, n: maxCodeOutput}, logs); err != nil {
		return "", fmt.Errorf("read container output: %w", err)
	}

	if exitCode != 0 {
		return "", fmt.Errorf("error executing code: exit status %d: %s", exitCode, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// limitedWriter keeps the first n bytes and discards the rest.
type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	keep := p
	if len(keep) > l.n {
		keep = keep[:l.n]
	}
	written, err := l.w.Write(keep)
	l.n -= written
	if err != nil {
		return written, err
	}
	return len(p), nil
}

func CreateExecuteCodeFunctionDeclaration(runner CodeRunner) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "execute_code",
		Description: "Executes Python code from a file or a string and returns what it prints. Print the values you need.",
		Parameters: []tools.Parameter{
			{Name: "file_path", Type: tools.TypeString, Description: "The path to the file containing the Python code to execute."},
			{Name: "code_string", Type: tools.TypeString, Description: "The Python code as a string to execute."},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.String(args, "file_path")
			code := tools.String(args, "code_string")
			if path == "" && code == "" {
				return nil, errors.New("either file_path or code_string must be provided")
			}

			if path != "" {
				if err := checkFile(path); err != nil {
					return nil, err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return nil, err
				}
				code = string(data)
			}

			out, err := runner.Run(ctx, code)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(out) == "" {
				return "The code ran successfully but printed nothing.", nil
			}
			return out, nil
		},
	}
}
