package catalog

import (
	"fmt"
	"sort"
	"strconv"
)

// Descriptor identifies one runnable service instance: the resolved
// executable plus the argument convention used to launch it.
type Descriptor struct {
	Name     string   `json:"name"`
	ExecPath string   `json:"exec_path"`
	Port     int      `json:"port"`
	Args     []string `json:"args"`
	WorkDir  string   `json:"work_dir,omitempty"`
}

// Definition holds the static defaults for one known service kind:
// the executable file name expected under the install tree, the default
// local port and the service-specific argument convention.
type Definition struct {
	Name   string
	Binary string
	Port   int
	// BuildArgs renders the launch arguments for the given port.
	BuildArgs func(port int) []string
}

// definitions is the table of services this manager knows how to run.
// The tunnel client is included so the scanner resolves its executable,
// but its arguments are owned by the tunnel controller.
var definitions = map[string]Definition{
	"redis": {
		Name: "redis", Binary: "redis-server", Port: 6379,
		BuildArgs: func(port int) []string {
			return []string{"--port", strconv.Itoa(port), "--save", ""}
		},
	},
	"mariadb": {
		Name: "mariadb", Binary: "mariadbd", Port: 3306,
		BuildArgs: func(port int) []string {
			return []string{"--port=" + strconv.Itoa(port), "--skip-grant-tables"}
		},
	},
	"mailpit": {
		Name: "mailpit", Binary: "mailpit", Port: 8025,
		BuildArgs: func(port int) []string {
			return []string{"--listen", "127.0.0.1:" + strconv.Itoa(port), "--smtp", "127.0.0.1:1025"}
		},
	},
	"meilisearch": {
		Name: "meilisearch", Binary: "meilisearch", Port: 7700,
		BuildArgs: func(port int) []string {
			return []string{"--http-addr", "127.0.0.1:" + strconv.Itoa(port)}
		},
	},
	"minio": {
		Name: "minio", Binary: "minio", Port: 9000,
		BuildArgs: func(port int) []string {
			return []string{"server", "--address", "127.0.0.1:" + strconv.Itoa(port)}
		},
	},
	"ngrok": {
		Name: "ngrok", Binary: "ngrok", Port: 0,
		BuildArgs: func(int) []string { return nil },
	},
}

// Lookup returns the definition for a known service name.
func Lookup(name string) (Definition, bool) {
	d, ok := definitions[name]
	return d, ok
}

// Names returns all known service names in sorted order.
func Names() []string {
	out := make([]string, 0, len(definitions))
	for n := range definitions {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Describe resolves a full Descriptor for a known service using the given
// executable path. port <= 0 selects the service default.
func Describe(name, execPath string, port int) (Descriptor, error) {
	def, ok := Lookup(name)
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown service %q", name)
	}
	if port <= 0 {
		port = def.Port
	}
	return Descriptor{
		Name:     name,
		ExecPath: execPath,
		Port:     port,
		Args:     def.BuildArgs(port),
	}, nil
}
