package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// commLength is how much of an executable name Linux keeps in /proc/<pid>/stat.
const commLength = 15

// otherInstances returns the pids of other processes running this executable.
// Two daemons sharing one checkpoint store overwrite each other's saves.
func otherInstances() ([]int, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}

	processes, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	var (
		name = filepath.Base(self)
		pid  = os.Getpid()
		pids []int
	)

	for _, p := range processes {
		if p.Pid() != pid && sameExecutable(p.Executable(), name) {
			pids = append(pids, p.Pid())
		}
	}

	return pids, nil
}

// sameExecutable compares a process list name with ours, allowing for the
// truncated names some platforms report.
func sameExecutable(listed, own string) bool {
	if strings.EqualFold(listed, own) {
		return true
	}

	return len(listed) == commLength && strings.HasPrefix(own, listed)
}
