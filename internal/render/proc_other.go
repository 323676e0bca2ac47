//go:build !unix

package render

import "os/exec"

func configureProcessGroup(_ *exec.Cmd) {}
