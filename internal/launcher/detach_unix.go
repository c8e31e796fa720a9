//go:build unix

package launcher

import (
	"os/exec"
	"syscall"
)

// detach выводит worker из группы процессов планировщика,
// чтобы SIGINT терминала доставался только планировщику.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
