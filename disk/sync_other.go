//go:build !unix

package disk

// Sync forces dirty pages written via WritePage to stable storage.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Sync()
}
