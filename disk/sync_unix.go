//go:build unix

package disk

import "golang.org/x/sys/unix"

// Sync forces dirty pages written via WritePage to stable storage. On
// unix it reaches past os.File.Sync into Fdatasync, skipping the
// metadata flush Sync forces when only page bytes changed — the same
// "go to the syscall layer directly" move mmap-backed stores make with
// Msync.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return unix.Fdatasync(int(m.file.Fd()))
}
