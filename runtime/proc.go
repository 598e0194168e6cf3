package runtime

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/process"

	"mmtools/contract"
	errs "mmtools/errors"
)

// ProcessTable locates processes by name substring and delivers signals.
// Absence of a matching process is reported as ErrNotFound, which callers
// treat as a logged non-error.
type ProcessTable struct{}

var _ contract.ProcessSignaler = ProcessTable{}

func (ProcessTable) FindProcess(name string) (int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	for _, p := range procs {
		// Kernel threads and short-lived processes can vanish mid-scan.
		n, err := p.Name()
		if err != nil {
			continue
		}
		if strings.Contains(n, name) {
			return p.Pid, nil
		}
	}
	return 0, fmt.Errorf("%w: no process matching %q", errs.ErrNotFound, name)
}

func (ProcessTable) Signal(pid int32, sig syscall.Signal) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	return p.SendSignal(sig)
}
