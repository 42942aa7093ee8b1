package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Installed is one discovered service binary under the install directory.
type Installed struct {
	Name     string `json:"name"`
	ExecPath string `json:"exec_path"`
}

// Scanner discovers installed services by walking the install directory.
// Layout: <dir>/<service>/<binary> or <dir>/<service>/bin/<binary>, where
// <binary> is the catalog binary name for <service>.
type Scanner struct {
	mu  sync.Mutex
	dir string
}

func NewScanner(dir string) *Scanner { return &Scanner{dir: dir} }

// Scan enumerates installed services. Missing install dir yields an empty
// list, not an error; a desktop install may not have provisioned anything yet.
func (s *Scanner) Scan() ([]Installed, error) {
	s.mu.Lock()
	dir := s.dir
	s.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Installed
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		def, ok := Lookup(e.Name())
		if !ok {
			continue
		}
		for _, cand := range []string{
			filepath.Join(dir, e.Name(), def.Binary),
			filepath.Join(dir, e.Name(), "bin", def.Binary),
		} {
			if fi, err := os.Stat(cand); err == nil && !fi.IsDir() {
				out = append(out, Installed{Name: def.Name, ExecPath: cand})
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find resolves a single installed service by exact name match.
func (s *Scanner) Find(name string) (Installed, bool) {
	list, err := s.Scan()
	if err != nil {
		return Installed{}, false
	}
	for _, in := range list {
		if in.Name == name {
			return in, true
		}
	}
	return Installed{}, false
}
