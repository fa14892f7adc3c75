package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/kballard/go-shellquote"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
)

// instance is the part of a testcontainers container the engines use.
type instance interface {
	Exec(ctx context.Context, cmd []string, options ...tcexec.ProcessOption) (int, io.Reader, error)
	CopyFileToContainer(ctx context.Context, hostFilePath string, containerFilePath string, fileMode int64) error
	CopyFileFromContainer(ctx context.Context, filePath string) (io.ReadCloser, error)
}

// run executes cmd in the instance and waits for it. The exec stream is
// demultiplexed so stdout and stderr stay separate.
func run(ctx context.Context, c instance, cmd []string, opts ...tcexec.ProcessOption) (ExecResult, error) {
	code, reader, err := c.Exec(ctx, cmd, opts...)
	if err != nil {
		return ExecResult{}, errors.Annotatef(err, "executing %s", cmd[0])
	}
	var stdout, stderr bytes.Buffer
	if reader != nil {
		if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
			return ExecResult{}, errors.Annotatef(err, "reading %s output", cmd[0])
		}
	}
	return ExecResult{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// runCaptured runs cmd with stdout and stderr redirected to files inside
// the instance and reads them back once it exits. The exec stream is only
// drained after the process ends, so commands with unbounded output go
// through here.
func runCaptured(ctx context.Context, c instance, cmd []string, opts ...tcexec.ProcessOption) (ExecResult, error) {
	base := path.Join(containerCapture, path.Base(cmd[0])+"-"+uuid.NewString())
	outFile, errFile := base+".out", base+".err"
	shell := fmt.Sprintf("mkdir -p %s && %s >%s 2>%s",
		containerCapture, shellquote.Join(cmd...), outFile, errFile)

	res, err := run(ctx, c, []string{"sh", "-c", shell}, opts...)
	if err != nil {
		return ExecResult{}, errors.Annotatef(err, "executing %s", cmd[0])
	}
	defer run(context.WithoutCancel(ctx), c, []string{"rm", "-f", outFile, errFile})

	stdout, err := readFile(ctx, c, outFile)
	if err != nil {
		return ExecResult{}, errors.Annotatef(err, "reading %s output", cmd[0])
	}
	stderr, err := readFile(ctx, c, errFile)
	if err != nil {
		return ExecResult{}, errors.Annotatef(err, "reading %s output", cmd[0])
	}
	// Anything the wrapper shell printed itself lands on the exec stream.
	return ExecResult{ExitCode: res.ExitCode, Stdout: stdout, Stderr: stderr + res.Stderr}, nil
}

func readFile(ctx context.Context, c instance, containerFile string) (string, error) {
	rc, err := c.CopyFileFromContainer(ctx, containerFile)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return string(data), errors.Trace(err)
}

// mustRun is run plus a non-zero exit treated as an error.
func mustRun(ctx context.Context, c instance, step string, cmd []string) error {
	res, err := run(ctx, c, cmd)
	if err != nil {
		return errors.Annotate(err, step)
	}
	if res.Failed() {
		return errors.Errorf("%s failed:\n%s", step, res.Diagnostic())
	}
	return nil
}

// copyIn pushes a host file into the instance directory dir and returns
// its path inside the instance.
func copyIn(ctx context.Context, c instance, hostPath, dir string) (string, error) {
	target := containerPath(dir, hostPath)
	if err := c.CopyFileToContainer(ctx, hostPath, target, 0644); err != nil {
		return "", errors.Annotatef(err, "copying %s into the instance", hostPath)
	}
	return target, nil
}

// copyOut fetches a file from the instance, replacing hostPath.
func copyOut(ctx context.Context, c instance, containerFile, hostPath string) error {
	rc, err := c.CopyFileFromContainer(ctx, containerFile)
	if err != nil {
		return errors.Annotatef(err, "copying %s from the instance", containerFile)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(hostPath), 0755); err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(hostPath)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return errors.Annotatef(err, "writing %s", hostPath)
	}
	return errors.Trace(f.Close())
}
